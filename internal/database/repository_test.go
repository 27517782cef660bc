package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobboard/internal/apperror"
	"jobboard/internal/database"
	"jobboard/internal/database/dbtest"
	"jobboard/internal/feed"
	"jobboard/internal/role"
)

func TestRegisterWritesRoleOnce(t *testing.T) {
	ctx := context.Background()
	repo := database.NewPrincipalRepository(dbtest.OpenTestDB(t))

	p, err := repo.Register(ctx, "  HR@Acme.IO ", "hash", role.Employer)
	require.NoError(t, err)
	assert.Equal(t, "hr@acme.io", p.Email)

	r, err := repo.LookupRole(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, role.Employer, r)

	_, err = repo.Register(ctx, "hr@acme.io", "hash", role.JobSeeker)
	assert.ErrorIs(t, err, database.ErrEmailTaken)

	r, err = repo.LookupRole(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, role.Employer, r)
}

func TestLookupRoleWithoutRecord(t *testing.T) {
	repo := database.NewPrincipalRepository(dbtest.OpenTestDB(t))

	_, err := repo.LookupRole(context.Background(), 404)
	assert.ErrorIs(t, err, role.ErrNoRecord)
}

func TestLookupRoleStoreFailureIsTransient(t *testing.T) {
	db := dbtest.OpenTestDB(t)
	repo := database.NewPrincipalRepository(db)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = repo.LookupRole(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, apperror.IsTransient(err))
	assert.NotErrorIs(t, err, role.ErrNoRecord)
}

func TestEnsureAdministrator(t *testing.T) {
	ctx := context.Background()
	repo := database.NewPrincipalRepository(dbtest.OpenTestDB(t))

	created, err := repo.EnsureAdministrator(ctx, "root@jobboard.local", "hash")
	require.NoError(t, err)
	assert.True(t, created)

	admin, err := repo.FindByEmail(ctx, "root@jobboard.local")
	require.NoError(t, err)
	assert.True(t, admin.Superuser)
	assert.True(t, admin.MustChangePassword)

	created, err = repo.EnsureAdministrator(ctx, "root@jobboard.local", "other")
	require.NoError(t, err)
	assert.False(t, created)

	seeker, err := repo.Register(ctx, "promote@me.io", "hash", role.JobSeeker)
	require.NoError(t, err)
	created, err = repo.EnsureAdministrator(ctx, "promote@me.io", "ignored")
	require.NoError(t, err)
	assert.False(t, created)
	promoted, err := repo.FindByID(ctx, seeker.ID)
	require.NoError(t, err)
	assert.True(t, promoted.Superuser)
	assert.Equal(t, "hash", promoted.PasswordHash)

	_, err = repo.EnsureAdministrator(ctx, " ", "hash")
	assert.True(t, apperror.IsValidation(err))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestUpdatePasswordClearsGate(t *testing.T) {
	ctx := context.Background()
	repo := database.NewPrincipalRepository(dbtest.OpenTestDB(t))
	_, err := repo.EnsureAdministrator(ctx, "root@jobboard.local", "hash")
	require.NoError(t, err)
	admin, err := repo.FindByEmail(ctx, "root@jobboard.local")
	require.NoError(t, err)

	require.NoError(t, repo.UpdatePassword(ctx, admin.ID, "new-hash"))
	admin, err = repo.FindByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.False(t, admin.MustChangePassword)
	assert.Equal(t, "new-hash", admin.PasswordHash)

	assert.True(t, apperror.IsNotFound(repo.UpdatePassword(ctx, 999, "x")))
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change signal")
	}
}

func TestJobRepositoryPublishesChanges(t *testing.T) {
	ctx := context.Background()
	bus := feed.NewMemoryBus()
	repo := database.NewJobRepository(dbtest.OpenTestDB(t), bus, nil)
	changes, stop, err := bus.Listen(ctx, feed.Jobs)
	require.NoError(t, err)
	defer stop()

	job := database.Job{Title: "Go Developer", CompanyName: "Acme", Status: database.JobPending, PostedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, &job))
	waitSignal(t, changes)

	require.NoError(t, repo.Update(ctx, job.ID, map[string]any{"status": database.JobApproved}))
	waitSignal(t, changes)

	visible, err := repo.List(ctx, database.JobFilter{VisibleOnly: true})
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	require.NoError(t, repo.Delete(ctx, job.ID))
	waitSignal(t, changes)

	_, err = repo.Get(ctx, job.ID)
	assert.True(t, apperror.IsNotFound(err))
	assert.True(t, apperror.IsNotFound(repo.Update(ctx, job.ID, map[string]any{"is_hidden": true})))
}

func TestJobListFilters(t *testing.T) {
	ctx := context.Background()
	repo := database.NewJobRepository(dbtest.OpenTestDB(t), nil, nil)
	now := time.Now()
	seed := []database.Job{
		{Title: "a", EmployerID: 1, CompanyName: "Acme", Status: database.JobApproved, PostedAt: now.Add(-2 * time.Hour)},
		{Title: "b", EmployerID: 1, CompanyName: "Acme", Status: database.JobPending, PostedAt: now.Add(-time.Hour)},
		{Title: "c", EmployerID: 2, CompanyName: "Globex", Status: database.JobApproved, HasWarning: true, PostedAt: now},
		{Title: "d", EmployerID: 2, CompanyName: "Globex", Status: database.JobApproved, IsHidden: true, PostedAt: now},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	titles := func(filter database.JobFilter) []string {
		list, err := repo.List(ctx, filter)
		require.NoError(t, err)
		out := make([]string, 0, len(list))
		for _, j := range list {
			out = append(out, j.Title)
		}
		return out
	}

	assert.Equal(t, []string{"c", "a"}, titles(database.JobFilter{VisibleOnly: true}))
	assert.ElementsMatch(t, []string{"a", "b"}, titles(database.JobFilter{EmployerID: 1}))
	assert.ElementsMatch(t, []string{"c", "d"}, titles(database.JobFilter{CompanyName: "Globex"}))
	assert.ElementsMatch(t, []string{"b", "c"}, titles(database.JobFilter{ReviewQueue: true}))
}

func TestApplicationTransitionIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := database.NewApplicationRepository(dbtest.OpenTestDB(t), nil, nil)
	app := database.Application{JobID: 1, EmployerID: 2, ApplicantID: 3, Status: database.ApplicationRejected, AppliedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, &app))

	ok, err := repo.TransitionStatus(ctx, app.ID,
		[]database.ApplicationStatus{database.ApplicationPending, database.ApplicationReviewed},
		database.ApplicationShortlisted)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, database.ApplicationRejected, got.Status)
}

func TestClassifyPermissionDenied(t *testing.T) {
	err := database.Classify("update job", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "42501", Message: "permission denied for table jobs"}))
	assert.True(t, apperror.IsPermissionDenied(err))

	err = database.Classify("update job", errors.New("connection reset"))
	assert.False(t, apperror.IsPermissionDenied(err))
	assert.ErrorContains(t, err, "update job")
}
