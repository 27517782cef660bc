package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobboard/internal/apperror"
	"jobboard/internal/company"
	"jobboard/internal/database"
	"jobboard/internal/database/dbtest"
	"jobboard/internal/errcode"
	"jobboard/internal/feed"
	"jobboard/internal/jobs"
	"jobboard/internal/notify"
	"jobboard/internal/role"
	"jobboard/internal/session"
	"jobboard/internal/tasks"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[uint][]notify.CompanyVerificationMessage
}

func (n *recordingNotifier) NotifyUser(_ context.Context, userID uint, message any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[uint][]notify.CompanyVerificationMessage{}
	}
	n.sent[userID] = append(n.sent[userID], message.(notify.CompanyVerificationMessage))
	return nil
}

type handlerFixture struct {
	handler    *VerifyTaskHandler
	principals *database.PrincipalRepository
	jobRepo    *database.JobRepository
	notifier   *recordingNotifier
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	db := dbtest.OpenTestDB(t)
	principals := database.NewPrincipalRepository(db)
	jobRepo := database.NewJobRepository(db, feed.NewMemoryBus(), nil)
	verifier := company.NewVerifier(jobs.NewManager(jobRepo, nil), jobs.NewManager(jobRepo, nil), nil, 2)
	n := &recordingNotifier{}
	return &handlerFixture{
		handler:    NewVerifyTaskHandler(principals, role.NewResolver(principals, nil), verifier, n, nil),
		principals: principals,
		jobRepo:    jobRepo,
		notifier:   n,
	}
}

func (f *handlerFixture) seedJobs(t *testing.T, companyName string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		job := database.Job{Title: "Role", CompanyName: companyName, EmployerID: 10, Status: database.JobPending}
		require.NoError(t, f.jobRepo.Create(context.Background(), &job))
	}
}

func TestVerifyTaskApprovesCompanyAndNotifies(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()
	_, err := f.principals.EnsureAdministrator(ctx, "root@jobboard.local", "hash")
	require.NoError(t, err)
	admin, err := f.principals.FindByEmail(ctx, "root@jobboard.local")
	require.NoError(t, err)
	f.seedJobs(t, "Acme", 3)

	task, err := tasks.NewCompanyVerifyTask("Acme", true, admin.ID, "corr-1")
	require.NoError(t, err)
	require.NoError(t, f.handler.ProcessTask(ctx, task))

	visible, err := f.jobRepo.List(ctx, database.JobFilter{VisibleOnly: true})
	require.NoError(t, err)
	assert.Len(t, visible, 3)

	require.Len(t, f.notifier.sent[admin.ID], 1)
	msg := f.notifier.sent[admin.ID][0]
	assert.Equal(t, errcode.OK, msg.ErrorCode)
	assert.Equal(t, "corr-1", msg.CorrelationID)
	assert.Len(t, msg.Succeeded, 3)
}

func TestVerifyTaskDeniesNonAdmin(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()
	employer, err := f.principals.Register(ctx, "hr@acme.test", "hash", role.Employer)
	require.NoError(t, err)
	f.seedJobs(t, "Acme", 1)

	task, err := tasks.NewCompanyVerifyTask("Acme", true, employer.ID, "corr-2")
	require.NoError(t, err)
	require.NoError(t, f.handler.ProcessTask(ctx, task))

	visible, err := f.jobRepo.List(ctx, database.JobFilter{VisibleOnly: true})
	require.NoError(t, err)
	assert.Empty(t, visible)

	require.Len(t, f.notifier.sent[employer.ID], 1)
	assert.Equal(t, errcode.AccessDenied, f.notifier.sent[employer.ID][0].ErrorCode)
}

func TestVerifyTaskUnknownAdminIsSkipped(t *testing.T) {
	f := newHandlerFixture(t)
	task, err := tasks.NewCompanyVerifyTask("Acme", true, 999, "corr-3")
	require.NoError(t, err)
	assert.NoError(t, f.handler.ProcessTask(context.Background(), task))
	assert.Empty(t, f.notifier.sent)
}

type deniedStoreVerifier struct{}

func (deniedStoreVerifier) VerifyCompany(context.Context, session.Session, string, bool) (*company.Result, error) {
	return nil, &apperror.PermissionDeniedError{Op: "list jobs", Err: errors.New("permission denied for table jobs")}
}

func TestVerifyTaskPermissionDeniedIsNotRetried(t *testing.T) {
	f := newHandlerFixture(t)
	f.handler.verifier = deniedStoreVerifier{}
	ctx := context.Background()
	_, err := f.principals.EnsureAdministrator(ctx, "root@jobboard.local", "hash")
	require.NoError(t, err)
	admin, err := f.principals.FindByEmail(ctx, "root@jobboard.local")
	require.NoError(t, err)

	task, err := tasks.NewCompanyVerifyTask("Acme", true, admin.ID, "corr-4")
	require.NoError(t, err)
	err = f.handler.ProcessTask(ctx, task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	require.Len(t, f.notifier.sent[admin.ID], 1)
	msg := f.notifier.sent[admin.ID][0]
	assert.Equal(t, errcode.PermissionDenied, msg.ErrorCode)
	assert.Contains(t, msg.ErrorMessage, "insufficient store permissions")
}
