package role

import (
	"context"
	"errors"
	"log/slog"

	"jobboard/internal/apperror"
)

// ErrNoRecord 表示身份尚未写入角色记录。
var ErrNoRecord = errors.New("role record not found")

// Store 提供 principal → role 的只读查询。
type Store interface {
	LookupRole(ctx context.Context, principalID uint) (Role, error)
}

// Resolution 是一次解析的结果。
// Degraded 为 true 表示角色数据不可用，已降级为 job-seeker。
type Resolution struct {
	Role     Role
	SignedIn bool
	Degraded bool
}

// Resolver 实现身份失败关闭、角色数据失败开放的解析规则。
type Resolver struct {
	store  Store
	logger *slog.Logger
}

func NewResolver(store Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, logger: logger}
}

// Resolve 将 principal 解析为角色。principal 为 nil 时返回 guest。
func (r *Resolver) Resolve(ctx context.Context, p *Principal) Resolution {
	if p == nil {
		return Resolution{Role: Guest}
	}
	if p.Superuser {
		return Resolution{Role: Admin, SignedIn: true}
	}

	stored, err := r.store.LookupRole(ctx, p.ID)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoRecord):
		r.logger.Info("role record missing, defaulting to job-seeker", slog.Uint64("principal_id", uint64(p.ID)))
		return Resolution{Role: JobSeeker, SignedIn: true, Degraded: true}
	default:
		r.logger.Warn("role lookup failed, defaulting to job-seeker",
			slog.Uint64("principal_id", uint64(p.ID)),
			slog.Bool("transient", apperror.IsTransient(err)),
			slog.Any("error", err),
		)
		return Resolution{Role: JobSeeker, SignedIn: true, Degraded: true}
	}

	// 一个已登录用户永远不会被解析为 guest。
	if !stored.Valid() || stored == Guest {
		return Resolution{Role: JobSeeker, SignedIn: true, Degraded: true}
	}
	return Resolution{Role: stored, SignedIn: true}
}
