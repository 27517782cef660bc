package database

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"jobboard/internal/apperror"
	"jobboard/internal/feed"
)

// JobFilter 描述职位查询条件，零值表示不过滤。
type JobFilter struct {
	EmployerID  uint
	CompanyName string
	VisibleOnly bool
	// ReviewQueue 只返回待审核或带告警的职位。
	ReviewQueue bool
}

// JobRepository 基于 GORM 实现职位集合的读写，写入提交后发布变更信号。
type JobRepository struct {
	db        *gorm.DB
	publisher feed.Publisher
	logger    *slog.Logger
}

func NewJobRepository(db *gorm.DB, publisher feed.Publisher, logger *slog.Logger) *JobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRepository{db: db, publisher: publisher, logger: logger}
}

func (r *JobRepository) Create(ctx context.Context, job *Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return classify("create job", err)
	}
	r.changed(ctx)
	return nil
}

func (r *JobRepository) Get(ctx context.Context, id uint) (*Job, error) {
	var job Job
	if err := r.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, classify("get job", err)
	}
	return &job, nil
}

// List 按发布时间倒序返回符合条件的职位。
func (r *JobRepository) List(ctx context.Context, filter JobFilter) ([]Job, error) {
	q := r.db.WithContext(ctx).Model(&Job{})
	if filter.EmployerID != 0 {
		q = q.Where("employer_id = ?", filter.EmployerID)
	}
	if filter.CompanyName != "" {
		q = q.Where("company_name = ?", filter.CompanyName)
	}
	if filter.VisibleOnly {
		q = q.Where("status = ? AND is_hidden = ?", JobApproved, false)
	}
	if filter.ReviewQueue {
		q = q.Where("status = ? OR has_warning = ?", JobPending, true)
	}

	var jobs []Job
	if err := q.Order("posted_at DESC").Order("id DESC").Find(&jobs).Error; err != nil {
		return nil, classify("list jobs", err)
	}
	return jobs, nil
}

// Update 对指定职位写入部分字段；没有并发版本检查，最后一次写入生效。
func (r *JobRepository) Update(ctx context.Context, id uint, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return classify("update job", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("job %d not found", id)
	}
	r.changed(ctx)
	return nil
}

// Delete 永久删除职位记录。
func (r *JobRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Unscoped().Delete(&Job{}, id)
	if res.Error != nil {
		return classify("delete job", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("job %d not found", id)
	}
	r.changed(ctx)
	return nil
}

func (r *JobRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Job{}).Count(&n).Error; err != nil {
		return 0, classify("count jobs", err)
	}
	return n, nil
}

func (r *JobRepository) changed(ctx context.Context) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, feed.Jobs); err != nil {
		r.logger.Warn("publish job change failed", slog.Any("error", err))
	}
}
