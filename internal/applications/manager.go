package applications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"gorm.io/datatypes"

	"jobboard/internal/apperror"
	"jobboard/internal/database"
	"jobboard/internal/metrics"
	"jobboard/internal/notify"
	"jobboard/internal/role"
	"jobboard/internal/session"
)

// Repository 是投递集合的持久化协作者。
type Repository interface {
	Create(ctx context.Context, app *database.Application) error
	Get(ctx context.Context, id uint) (*database.Application, error)
	List(ctx context.Context, filter database.ApplicationFilter) ([]database.Application, error)
	TransitionStatus(ctx context.Context, id uint, from []database.ApplicationStatus, to database.ApplicationStatus) (bool, error)
}

// JobSource 返回对求职者可见的职位。
type JobSource interface {
	GetVisible(ctx context.Context, id uint) (*database.Job, error)
}

// ResumeStore 是简历文件的存储协作者。
type ResumeStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// Notifier 向单个用户推送消息。
type Notifier interface {
	NotifyUser(ctx context.Context, userID uint, message any) error
}

// Manager 持有投递状态迁移规则。
type Manager struct {
	repo           Repository
	jobs           JobSource
	resumes        ResumeStore
	notifier       Notifier
	logger         *slog.Logger
	maxResumeBytes int64
	now            func() time.Time
}

func NewManager(repo Repository, jobs JobSource, resumes ResumeStore, notifier Notifier, logger *slog.Logger, maxResumeBytes int64) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		repo:           repo,
		jobs:           jobs,
		resumes:        resumes,
		notifier:       notifier,
		logger:         logger,
		maxResumeBytes: maxResumeBytes,
		now:            time.Now,
	}
}

// AuthorizeSubmit 判断会话能否投递。
// guest 返回 Unauthenticated（前端跳转登录），employer 明确拒绝。
func (m *Manager) AuthorizeSubmit(s session.Session) error {
	var err error
	switch {
	case !s.SignedIn:
		err = apperror.Unauthenticated("Please login to apply for jobs.")
	case s.Is(role.Employer):
		err = apperror.AccessDenied(role.JobSeeker.String(), "Employers cannot apply for jobs. Please register as a Job Seeker.")
	default:
		err = s.Require("apply for jobs", role.JobSeeker, role.Admin)
	}
	if err != nil {
		metrics.ObserveApplicationTransition("submit", metrics.OutcomeDenied)
	}
	return err
}

// Submit 为求职者创建投递，并冻结投递时刻的职位信息。
func (m *Manager) Submit(ctx context.Context, s session.Session, jobID uint, form Form, resume *Resume) (*database.Application, error) {
	if err := m.AuthorizeSubmit(s); err != nil {
		return nil, err
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if err := validateResume(resume, m.maxResumeBytes); err != nil {
		return nil, err
	}
	body, err := sniffPDF(resume.Body)
	if err != nil {
		return nil, err
	}

	job, err := m.jobs.GetVisible(ctx, jobID)
	if err != nil {
		return nil, err
	}

	applicantID := s.PrincipalID()
	objectKey := fmt.Sprintf("resumes/%d/%s.pdf", applicantID, uuid.NewString())
	if _, err := m.resumes.UploadFile(ctx, objectKey, body, resume.Size, pdfContentType); err != nil {
		metrics.ObserveApplicationTransition("submit", metrics.OutcomeFailed)
		return nil, fmt.Errorf("upload resume: %w", err)
	}

	app := database.Application{
		JobID:       job.ID,
		EmployerID:  job.EmployerID,
		ApplicantID: applicantID,
		Snapshot: datatypes.NewJSONType(database.JobSnapshot{
			Title:       job.Title,
			CompanyName: job.CompanyName,
			Location:    job.Location,
			Salary:      job.Salary,
		}),
		ApplicantName:   strings.TrimSpace(form.FullName),
		ApplicantEmail:  strings.TrimSpace(form.Email),
		ApplicantPhone:  strings.TrimSpace(form.Phone),
		ResumeName:      resumeName(resume.Name),
		ResumeObjectKey: objectKey,
		AppliedAt:       m.now(),
		Experience:      job.Experience,
		Status:          database.ApplicationPending,
	}
	if err := m.repo.Create(ctx, &app); err != nil {
		metrics.ObserveApplicationTransition("submit", metrics.OutcomeFailed)
		if delErr := m.resumes.DeleteObject(ctx, objectKey); delErr != nil {
			m.logger.Warn("remove orphaned resume failed", slog.String("object_key", objectKey), slog.Any("error", delErr))
		}
		return nil, err
	}

	metrics.ObserveApplicationTransition("submit", metrics.OutcomeApplied)
	m.logger.Info("application submitted",
		slog.Uint64("application_id", uint64(app.ID)),
		slog.Uint64("job_id", uint64(job.ID)),
		slog.Uint64("applicant_id", uint64(applicantID)),
	)
	return &app, nil
}

// Open 是雇主查看投递详情；首次查看 Pending 投递时自动标记为 Reviewed。
func (m *Manager) Open(ctx context.Context, s session.Session, id uint) (*database.Application, error) {
	app, err := m.received(ctx, s, id, "view applications")
	if err != nil {
		return nil, err
	}
	if app.Status != database.ApplicationPending {
		return app, nil
	}
	return m.markReviewed(ctx, app)
}

// MarkReviewed 把 Pending 投递标记为 Reviewed；其他状态下不做任何修改。
func (m *Manager) MarkReviewed(ctx context.Context, s session.Session, id uint) (*database.Application, error) {
	app, err := m.received(ctx, s, id, "review applications")
	if err != nil {
		return nil, err
	}
	if app.Status != database.ApplicationPending {
		metrics.ObserveApplicationTransition("mark_reviewed", metrics.OutcomeNoop)
		return app, nil
	}
	return m.markReviewed(ctx, app)
}

func (m *Manager) markReviewed(ctx context.Context, app *database.Application) (*database.Application, error) {
	return m.apply(ctx, app, "mark_reviewed", database.ApplicationReviewed, false)
}

// Shortlist 把投递标记为入围。已入围时为幂等的空操作；已驳回时返回 Conflict。
func (m *Manager) Shortlist(ctx context.Context, s session.Session, id uint) (*database.Application, error) {
	app, err := m.received(ctx, s, id, "shortlist applications")
	if err != nil {
		return nil, err
	}
	return m.apply(ctx, app, "shortlist", database.ApplicationShortlisted, true)
}

// Reject 驳回投递，除已驳回外任何状态都可驳回；重复驳回为空操作。
func (m *Manager) Reject(ctx context.Context, s session.Session, id uint) (*database.Application, error) {
	app, err := m.received(ctx, s, id, "reject applications")
	if err != nil {
		return nil, err
	}
	return m.apply(ctx, app, "reject", database.ApplicationRejected, true)
}

// apply 执行条件写入。写入未生效时重新读取，以区分并发下的空操作与非法迁移。
func (m *Manager) apply(ctx context.Context, app *database.Application, action string, to database.ApplicationStatus, strict bool) (*database.Application, error) {
	if app.Status == to {
		metrics.ObserveApplicationTransition(action, metrics.OutcomeNoop)
		return app, nil
	}
	if !CanTransition(app.Status, to) {
		return m.refuse(app, action, to, strict)
	}

	applied, err := m.repo.TransitionStatus(ctx, app.ID, allowedFrom[to], to)
	if err != nil {
		metrics.ObserveApplicationTransition(action, metrics.OutcomeFailed)
		return nil, err
	}
	if !applied {
		current, err := m.repo.Get(ctx, app.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == to {
			metrics.ObserveApplicationTransition(action, metrics.OutcomeNoop)
			return current, nil
		}
		return m.refuse(current, action, to, strict)
	}

	from := app.Status
	app.Status = to
	metrics.ObserveApplicationTransition(action, metrics.OutcomeApplied)
	m.logger.Info("application status changed",
		slog.Uint64("application_id", uint64(app.ID)),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
	m.notifyApplicant(ctx, app)
	return app, nil
}

func (m *Manager) refuse(app *database.Application, action string, to database.ApplicationStatus, strict bool) (*database.Application, error) {
	if !strict {
		metrics.ObserveApplicationTransition(action, metrics.OutcomeNoop)
		return app, nil
	}
	metrics.ObserveApplicationTransition(action, metrics.OutcomeDenied)
	return nil, apperror.Conflict("application %d is %s and cannot move to %s", app.ID, app.Status, to)
}

func (m *Manager) notifyApplicant(ctx context.Context, app *database.Application) {
	if m.notifier == nil {
		return
	}
	msg := notify.ApplicationStatusMessage{
		Type:          notify.TypeApplicationStatus,
		ApplicationID: app.ID,
		JobTitle:      app.Snapshot.Data().Title,
		Status:        string(app.Status),
	}
	if err := m.notifier.NotifyUser(ctx, app.ApplicantID, msg); err != nil {
		m.logger.Warn("notify applicant failed",
			slog.Uint64("application_id", uint64(app.ID)),
			slog.Any("error", err),
		)
	}
}

// received 校验调用者是雇主且该投递属于他。
func (m *Manager) received(ctx context.Context, s session.Session, id uint, action string) (*database.Application, error) {
	if err := s.Require(action, role.Employer); err != nil {
		return nil, err
	}
	app, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.EmployerID != s.PrincipalID() {
		return nil, apperror.AccessDenied(role.Employer.String(), "Access Denied: application %d belongs to another employer", id)
	}
	return app, nil
}

// ListMine 返回求职者自己的投递。
func (m *Manager) ListMine(ctx context.Context, s session.Session) ([]database.Application, error) {
	if err := s.Require("view your applications", role.JobSeeker, role.Admin); err != nil {
		return nil, err
	}
	return m.repo.List(ctx, database.ApplicationFilter{ApplicantID: s.PrincipalID()})
}

// ListReceived 返回雇主收到的投递。
func (m *Manager) ListReceived(ctx context.Context, s session.Session) ([]database.Application, error) {
	if err := s.Require("view received applications", role.Employer); err != nil {
		return nil, err
	}
	return m.repo.List(ctx, database.ApplicationFilter{EmployerID: s.PrincipalID()})
}

// ListForSession 按角色返回订阅范围内的投递：admin 全部，employer 收到的，其余为自己的。
func (m *Manager) ListForSession(ctx context.Context, s session.Session) ([]database.Application, error) {
	switch {
	case !s.SignedIn:
		return nil, apperror.Unauthenticated("login required to view applications")
	case s.Is(role.Admin):
		return m.repo.List(ctx, database.ApplicationFilter{})
	case s.Is(role.Employer):
		return m.repo.List(ctx, database.ApplicationFilter{EmployerID: s.PrincipalID()})
	default:
		return m.repo.List(ctx, database.ApplicationFilter{ApplicantID: s.PrincipalID()})
	}
}

// ResumeLink 为雇主生成简历的限时下载链接。
func (m *Manager) ResumeLink(ctx context.Context, s session.Session, id uint, ttl time.Duration) (string, error) {
	app, err := m.received(ctx, s, id, "download resumes")
	if err != nil {
		return "", err
	}
	if app.ResumeObjectKey == "" {
		return "", apperror.NotFound("application %d has no resume", id)
	}
	return m.resumes.GeneratePresignedURL(ctx, app.ResumeObjectKey, ttl)
}

func resumeName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "resume.pdf"
	}
	return name
}
