// Package session 提供显式传递的会话对象，取代全局的“当前用户/当前角色”。
// 会话在登录（令牌签发）时获得，在退出（刷新令牌被吊销）时失效，
// 每个请求由鉴权中间件重新构造并放入 context。
package session

import (
	"context"
	"strings"

	"jobboard/internal/apperror"
	"jobboard/internal/role"
)

// Session 描述一次请求的调用者。
type Session struct {
	Principal *role.Principal
	Role      role.Role
	SignedIn  bool
	// Degraded 表示角色数据读取失败，权限已降级。
	Degraded bool
}

// Guest 返回未登录的会话。
func Guest() Session {
	return Session{Role: role.Guest}
}

// New 根据身份与角色解析结果构造会话。
func New(p *role.Principal, res role.Resolution) Session {
	if p == nil || !res.SignedIn {
		return Guest()
	}
	return Session{
		Principal: p,
		Role:      res.Role,
		SignedIn:  true,
		Degraded:  res.Degraded,
	}
}

// PrincipalID 返回调用者 ID，未登录时为 0。
func (s Session) PrincipalID() uint {
	if s.Principal == nil {
		return 0
	}
	return s.Principal.ID
}

func (s Session) Is(r role.Role) bool { return s.Role == r }

// Require 校验会话已登录且角色属于 allowed；未登录返回 Unauthenticated，
// 角色不符返回 AccessDenied 并注明所需角色。
func (s Session) Require(action string, allowed ...role.Role) error {
	if !s.SignedIn {
		return apperror.Unauthenticated("login required to %s", action)
	}
	for _, r := range allowed {
		if s.Role == r {
			return nil
		}
	}
	names := make([]string, 0, len(allowed))
	for _, r := range allowed {
		names = append(names, r.String())
	}
	required := strings.Join(names, " or ")
	return apperror.AccessDenied(required, "Access Denied: %s requires %s privileges", action, required)
}

type sessionKey struct{}

// WithSession 把会话写入 context。
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext 读取会话；没有会话时视为 guest。
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(sessionKey{}).(Session); ok {
		return s
	}
	return Guest()
}
