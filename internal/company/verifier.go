package company

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"jobboard/internal/apperror"
	"jobboard/internal/database"
	"jobboard/internal/metrics"
	"jobboard/internal/role"
	"jobboard/internal/session"
)

const defaultConcurrency = 4

// JobSource 列出公司名下的职位。
type JobSource interface {
	ListByCompany(ctx context.Context, companyName string) ([]database.Job, error)
}

// Moderator 对单个职位执行审核迁移。
type Moderator interface {
	Approve(ctx context.Context, s session.Session, id uint) (*database.Job, error)
	Reject(ctx context.Context, s session.Session, id uint) (*database.Job, error)
}

// Result 是一次批量认证的逐条结果。已成功的写入不会因其他失败而回滚。
type Result struct {
	CompanyName string
	Approve     bool
	Succeeded   []uint
	Failed      map[uint]error
	Aggregate   Aggregate
}

// Partial 表示部分职位更新失败。
func (r Result) Partial() bool { return len(r.Failed) > 0 }

// FailedMessages 返回便于序列化的失败原因。
func (r Result) FailedMessages() map[uint]string {
	out := make(map[uint]string, len(r.Failed))
	for id, err := range r.Failed {
		out[id] = err.Error()
	}
	return out
}

type Verifier struct {
	jobs        JobSource
	moderator   Moderator
	logger      *slog.Logger
	concurrency int
}

func NewVerifier(jobs JobSource, moderator Moderator, logger *slog.Logger, concurrency int) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Verifier{jobs: jobs, moderator: moderator, logger: logger, concurrency: concurrency}
}

// VerifyCompany 对公司名下每个职位并发执行 approve 或 reject，等待全部完成后返回结果。
// 单个职位失败只记入 Failed，不影响其他职位。
func (v *Verifier) VerifyCompany(ctx context.Context, s session.Session, companyName string, approve bool) (*Result, error) {
	if err := s.Require("verify a company", role.Admin); err != nil {
		metrics.ObserveCompanyVerification(metrics.OutcomeDenied)
		return nil, err
	}
	companyName = strings.TrimSpace(companyName)
	if companyName == "" {
		return nil, apperror.Validation("company_name", "is required")
	}

	jobs, err := v.jobs.ListByCompany(ctx, companyName)
	if err != nil {
		metrics.ObserveCompanyVerification(metrics.OutcomeFailed)
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, apperror.NotFound("company %q has no jobs", companyName)
	}

	result := &Result{CompanyName: companyName, Approve: approve, Failed: make(map[uint]error)}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(v.concurrency)
	for i := range jobs {
		i := i
		id := jobs[i].ID
		g.Go(func() error {
			updated, err := v.apply(ctx, s, id, approve)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[id] = err
				return nil
			}
			result.Succeeded = append(result.Succeeded, id)
			jobs[i] = *updated
			return nil
		})
	}
	_ = g.Wait()
	slices.Sort(result.Succeeded)

	// 聚合状态按写入后的最新记录重新计算；重新读取失败时退回本次已知的结果。
	if current, err := v.jobs.ListByCompany(ctx, companyName); err == nil {
		jobs = current
	} else {
		v.logger.Warn("reload company jobs failed", slog.String("company", companyName), slog.Any("error", err))
	}
	result.Aggregate = AggregateStatus(jobs, companyName)
	outcome := metrics.OutcomeApplied
	if result.Partial() {
		outcome = metrics.OutcomeFailed
	}
	metrics.ObserveCompanyVerification(outcome)
	v.logger.Info("company verification finished",
		slog.String("company", companyName),
		slog.Bool("approve", approve),
		slog.Int("succeeded", len(result.Succeeded)),
		slog.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (v *Verifier) apply(ctx context.Context, s session.Session, id uint, approve bool) (*database.Job, error) {
	if approve {
		return v.moderator.Approve(ctx, s, id)
	}
	return v.moderator.Reject(ctx, s, id)
}
