package jobs

import (
	"context"

	"jobboard/internal/apperror"
	"jobboard/internal/database"
	"jobboard/internal/role"
	"jobboard/internal/session"
)

// ListVisible 返回对求职者可见的职位（已通过且未隐藏），guest 同样可以浏览。
func (m *Manager) ListVisible(ctx context.Context) ([]database.Job, error) {
	return m.repo.List(ctx, database.JobFilter{VisibleOnly: true})
}

// GetVisible 返回一个可见职位；不可见时与不存在同样处理。
func (m *Manager) GetVisible(ctx context.Context, id uint) (*database.Job, error) {
	job, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.VisibleToJobSeekers() {
		return nil, apperror.NotFound("job %d not found", id)
	}
	return job, nil
}

// ListForSession 按会话角色返回可见范围内的职位：
// admin 全部，employer 自己发布的，其余为公开可见的职位。
func (m *Manager) ListForSession(ctx context.Context, s session.Session) ([]database.Job, error) {
	switch s.Role {
	case role.Admin:
		return m.repo.List(ctx, database.JobFilter{})
	case role.Employer:
		return m.repo.List(ctx, database.JobFilter{EmployerID: s.PrincipalID()})
	default:
		return m.ListVisible(ctx)
	}
}

// ListOwn 返回雇主自己发布的全部职位（包括被隐藏和驳回的）。
func (m *Manager) ListOwn(ctx context.Context, s session.Session) ([]database.Job, error) {
	if err := s.Require("view posted jobs", role.Employer); err != nil {
		return nil, err
	}
	return m.repo.List(ctx, database.JobFilter{EmployerID: s.PrincipalID()})
}

// ListAll 返回全部职位，仅管理员可用。
func (m *Manager) ListAll(ctx context.Context, s session.Session) ([]database.Job, error) {
	if err := s.Require("view all jobs", role.Admin); err != nil {
		return nil, err
	}
	return m.repo.List(ctx, database.JobFilter{})
}

// ReviewQueue 返回待审核或带告警的职位。
func (m *Manager) ReviewQueue(ctx context.Context, s session.Session) ([]database.Job, error) {
	if err := s.Require("review jobs", role.Admin); err != nil {
		return nil, err
	}
	return m.repo.List(ctx, database.JobFilter{ReviewQueue: true})
}

// ListByCompany 返回同一公司名下的全部职位。
func (m *Manager) ListByCompany(ctx context.Context, companyName string) ([]database.Job, error) {
	return m.repo.List(ctx, database.JobFilter{CompanyName: companyName})
}
