package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobboard/internal/auth"
	"jobboard/internal/role"
	"jobboard/internal/session"
)

const (
	sessionContextKey = "session"
	userIDKey         = "userID"
	mustChangeKey     = "mustChangePassword"
)

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "redirect": "login"})
}

// SessionMiddleware 解析可选的访问令牌，并为每个请求构造会话。
// 没有 Authorization 头时为 guest；令牌无效时直接返回 401。
func SessionMiddleware(authService *auth.AuthService, resolver *role.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			setSession(c, session.Guest())
			c.Next()
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		rawToken := parts[1]
		if strings.TrimSpace(rawToken) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateAccessToken(rawToken)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		p := claims.Principal()
		res := resolver.Resolve(c.Request.Context(), p)
		s := session.New(p, res)
		if res.Degraded {
			LoggerFromContext(c).Warn("role lookup degraded, continuing as job-seeker",
				slog.Uint64("user_id", uint64(claims.UserID)),
			)
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(mustChangeKey, claims.MustChangePassword)
		setSession(c, s)
		c.Next()
	}
}

// AuthMiddleware 要求请求已登录，必须在 SessionMiddleware 之后使用。
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !SessionFromContext(c).SignedIn {
			abortUnauthorized(c)
			return
		}
		c.Next()
	}
}

func setSession(c *gin.Context, s session.Session) {
	c.Set(sessionContextKey, s)
	c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), s))
}

// SessionFromContext 返回当前请求的会话，缺失时视为 guest。
func SessionFromContext(c *gin.Context) session.Session {
	if value, ok := c.Get(sessionContextKey); ok {
		if s, ok := value.(session.Session); ok {
			return s
		}
	}
	return session.FromContext(c.Request.Context())
}
