package api

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"jobboard/internal/api/middleware"
	"jobboard/internal/session"
)

func loggerFromContext(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}

func sessionFrom(c *gin.Context) session.Session {
	return middleware.SessionFromContext(c)
}

// idParam 解析路径中的 :id，非法时直接写入 400。
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}

// userIDFromContext 返回已登录调用者的 ID。
func userIDFromContext(c *gin.Context) (uint, bool) {
	s := sessionFrom(c)
	if !s.SignedIn {
		return 0, false
	}
	return s.PrincipalID(), true
}
