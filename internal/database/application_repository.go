package database

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"jobboard/internal/feed"
)

// ApplicationFilter 描述投递查询条件。
type ApplicationFilter struct {
	ApplicantID uint
	EmployerID  uint
	JobID       uint
}

// ApplicationRepository 基于 GORM 实现投递集合的读写。
type ApplicationRepository struct {
	db        *gorm.DB
	publisher feed.Publisher
	logger    *slog.Logger
}

func NewApplicationRepository(db *gorm.DB, publisher feed.Publisher, logger *slog.Logger) *ApplicationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApplicationRepository{db: db, publisher: publisher, logger: logger}
}

func (r *ApplicationRepository) Create(ctx context.Context, app *Application) error {
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		return classify("create application", err)
	}
	r.changed(ctx)
	return nil
}

func (r *ApplicationRepository) Get(ctx context.Context, id uint) (*Application, error) {
	var app Application
	if err := r.db.WithContext(ctx).First(&app, id).Error; err != nil {
		return nil, classify("get application", err)
	}
	return &app, nil
}

func (r *ApplicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]Application, error) {
	q := r.db.WithContext(ctx).Model(&Application{})
	if filter.ApplicantID != 0 {
		q = q.Where("applicant_id = ?", filter.ApplicantID)
	}
	if filter.EmployerID != 0 {
		q = q.Where("employer_id = ?", filter.EmployerID)
	}
	if filter.JobID != 0 {
		q = q.Where("job_id = ?", filter.JobID)
	}

	var apps []Application
	if err := q.Order("applied_at DESC").Order("id DESC").Find(&apps).Error; err != nil {
		return nil, classify("list applications", err)
	}
	return apps, nil
}

// TransitionStatus 仅当当前状态属于 from 时把状态改为 to，返回是否发生了写入。
// 条件写入保证并发下也不会从终态回退。
func (r *ApplicationRepository) TransitionStatus(ctx context.Context, id uint, from []ApplicationStatus, to ApplicationStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Application{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, classify("update application status", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	r.changed(ctx)
	return true, nil
}

func (r *ApplicationRepository) changed(ctx context.Context) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, feed.Applications); err != nil {
		r.logger.Warn("publish application change failed", slog.Any("error", err))
	}
}
