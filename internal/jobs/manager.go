package jobs

import (
	"context"
	"log/slog"
	"time"

	"jobboard/internal/apperror"
	"jobboard/internal/database"
	"jobboard/internal/metrics"
	"jobboard/internal/role"
	"jobboard/internal/session"
)

// Repository 是职位集合的持久化协作者。
type Repository interface {
	Create(ctx context.Context, job *database.Job) error
	Get(ctx context.Context, id uint) (*database.Job, error)
	List(ctx context.Context, filter database.JobFilter) ([]database.Job, error)
	Update(ctx context.Context, id uint, fields map[string]any) error
	Delete(ctx context.Context, id uint) error
}

// Manager 持有职位状态迁移规则，并在写入前完成角色与归属校验。
type Manager struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewManager(repo Repository, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{repo: repo, logger: logger, now: time.Now}
}

// Create 由雇主发布职位，初始为 pending。
func (m *Manager) Create(ctx context.Context, s session.Session, d Draft) (*database.Job, error) {
	if err := s.Require("post a job", role.Employer); err != nil {
		metrics.ObserveJobTransition("create", metrics.OutcomeDenied)
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	job := d.build(s.PrincipalID(), m.now())
	if err := m.repo.Create(ctx, &job); err != nil {
		metrics.ObserveJobTransition("create", metrics.OutcomeFailed)
		return nil, err
	}

	metrics.ObserveJobTransition("create", metrics.OutcomeApplied)
	m.logger.Info("job created",
		slog.Uint64("job_id", uint64(job.ID)),
		slog.Uint64("employer_id", uint64(job.EmployerID)),
	)
	return &job, nil
}

// Approve 由管理员审核通过；对已通过的职位重复执行结果不变。
func (m *Manager) Approve(ctx context.Context, s session.Session, id uint) (*database.Job, error) {
	if err := s.Require("approve a job", role.Admin); err != nil {
		metrics.ObserveJobTransition("approve", metrics.OutcomeDenied)
		return nil, err
	}
	return m.moderate(ctx, s, id, "approve", ApproveFields())
}

// Reject 由管理员驳回，驳回后仍可再次通过。
func (m *Manager) Reject(ctx context.Context, s session.Session, id uint) (*database.Job, error) {
	if err := s.Require("reject a job", role.Admin); err != nil {
		metrics.ObserveJobTransition("reject", metrics.OutcomeDenied)
		return nil, err
	}
	return m.moderate(ctx, s, id, "reject", RejectFields())
}

// Block 由管理员永久删除确认欺诈的职位，不可恢复。
func (m *Manager) Block(ctx context.Context, s session.Session, id uint) error {
	if err := s.Require("block a job", role.Admin); err != nil {
		metrics.ObserveJobTransition("block", metrics.OutcomeDenied)
		return err
	}
	return m.remove(ctx, s, id, "block")
}

// ToggleVisibility 由职位所属雇主切换隐藏状态，审核状态不变。
func (m *Manager) ToggleVisibility(ctx context.Context, s session.Session, id uint) (*database.Job, error) {
	job, err := m.owned(ctx, s, id, "change job visibility")
	if err != nil {
		metrics.ObserveJobTransition("toggle_visibility", outcomeOf(err))
		return nil, err
	}

	fields := ToggleVisibilityFields(*job)
	if err := m.repo.Update(ctx, id, fields); err != nil {
		metrics.ObserveJobTransition("toggle_visibility", metrics.OutcomeFailed)
		return nil, err
	}
	ApplyFields(job, fields)

	metrics.ObserveJobTransition("toggle_visibility", metrics.OutcomeApplied)
	m.logger.Info("job visibility toggled",
		slog.Uint64("job_id", uint64(id)),
		slog.Bool("is_hidden", job.IsHidden),
	)
	return job, nil
}

// Delete 由职位所属雇主永久删除职位。
func (m *Manager) Delete(ctx context.Context, s session.Session, id uint) error {
	if _, err := m.owned(ctx, s, id, "delete a job"); err != nil {
		metrics.ObserveJobTransition("delete", outcomeOf(err))
		return err
	}
	return m.remove(ctx, s, id, "delete")
}

func (m *Manager) moderate(ctx context.Context, s session.Session, id uint, action string, fields map[string]any) (*database.Job, error) {
	job, err := m.repo.Get(ctx, id)
	if err != nil {
		metrics.ObserveJobTransition(action, metrics.OutcomeFailed)
		return nil, err
	}
	if err := m.repo.Update(ctx, id, fields); err != nil {
		metrics.ObserveJobTransition(action, metrics.OutcomeFailed)
		return nil, err
	}
	ApplyFields(job, fields)

	metrics.ObserveJobTransition(action, metrics.OutcomeApplied)
	m.logger.Info("job moderated",
		slog.String("action", action),
		slog.Uint64("job_id", uint64(id)),
		slog.Uint64("admin_id", uint64(s.PrincipalID())),
	)
	return job, nil
}

func (m *Manager) remove(ctx context.Context, s session.Session, id uint, action string) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		metrics.ObserveJobTransition(action, metrics.OutcomeFailed)
		return err
	}
	metrics.ObserveJobTransition(action, metrics.OutcomeApplied)
	m.logger.Info("job removed",
		slog.String("action", action),
		slog.Uint64("job_id", uint64(id)),
		slog.Uint64("actor_id", uint64(s.PrincipalID())),
	)
	return nil
}

// owned 校验调用者是雇主且拥有该职位。
func (m *Manager) owned(ctx context.Context, s session.Session, id uint, action string) (*database.Job, error) {
	if err := s.Require(action, role.Employer); err != nil {
		return nil, err
	}
	job, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.EmployerID != s.PrincipalID() {
		return nil, apperror.AccessDenied(role.Employer.String(), "Access Denied: only the employer who posted job %d may %s", id, action)
	}
	return job, nil
}

func outcomeOf(err error) string {
	if apperror.IsAccessDenied(err) || apperror.IsUnauthenticated(err) {
		return metrics.OutcomeDenied
	}
	return metrics.OutcomeFailed
}
