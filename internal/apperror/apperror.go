// Package apperror 定义业务层统一的错误分类，由 API 层映射为 HTTP 状态码。
package apperror

import (
	"errors"
	"fmt"
)

// AccessDeniedError 表示当前角色无权执行该视图/操作。
type AccessDeniedError struct {
	Message      string
	RequiredRole string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// UnauthenticatedError 表示操作需要登录，调用方应跳转到登录页。
type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string { return e.Message }

// PermissionDeniedError 表示存储层拒绝了写入（例如数据库权限不足）。
type PermissionDeniedError struct {
	Op  string
	Err error
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("%s: insufficient store permissions: %v", e.Op, e.Err)
}

func (e *PermissionDeniedError) Unwrap() error { return e.Err }

// ValidationError 表示输入不合法，在任何写操作之前被拦截。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NotFoundError 表示记录不存在。
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ConflictError 表示请求的状态迁移不被允许。
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// TransientError 表示读取失败但可降级处理（例如角色记录暂不可用）。
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

func AccessDenied(requiredRole, format string, args ...any) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...), RequiredRole: requiredRole}
}

func Unauthenticated(format string, args ...any) *UnauthenticatedError {
	return &UnauthenticatedError{Message: fmt.Sprintf(format, args...)}
}

func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// IsAccessDenied 等辅助函数便于调用方做分支判断。
func IsAccessDenied(err error) bool {
	var target *AccessDeniedError
	return errors.As(err, &target)
}

func IsUnauthenticated(err error) bool {
	var target *UnauthenticatedError
	return errors.As(err, &target)
}

func IsPermissionDenied(err error) bool {
	var target *PermissionDeniedError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsTransient(err error) bool {
	var target *TransientError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
