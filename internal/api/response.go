package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobboard/internal/apperror"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "redirect": "login"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// respondError 把业务错误映射为 HTTP 响应；未分类的错误记录日志后返回 500。
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		denied     *apperror.AccessDeniedError
		unauth     *apperror.UnauthenticatedError
		permission *apperror.PermissionDeniedError
		invalid    *apperror.ValidationError
		notFound   *apperror.NotFoundError
		conflict   *apperror.ConflictError
	)
	switch {
	case errors.As(err, &unauth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": unauth.Message, "redirect": "login"})
	case errors.As(err, &denied):
		c.JSON(http.StatusForbidden, gin.H{"error": denied.Message, "required_role": denied.RequiredRole})
	case errors.As(err, &permission):
		logger.Warn("store rejected write", slog.String("op", permission.Op), slog.Any("error", permission.Err))
		Forbidden(c, "Permission denied: insufficient store permissions")
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Message, "field": invalid.Field})
	case errors.As(err, &notFound):
		NotFound(c, notFound.Message)
	case errors.As(err, &conflict):
		Conflict(c, conflict.Message)
	default:
		logger.Error("request failed", slog.Any("error", err))
		Internal(c, "internal error")
	}
}
