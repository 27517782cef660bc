package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"jobboard/internal/apperror"
)

// insufficientPrivilege 对应 PostgreSQL SQLSTATE 42501。
const insufficientPrivilege = "42501"

// classify 将底层存储错误转换为业务错误分类。
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("%s: record not found", op)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == insufficientPrivilege {
		return &apperror.PermissionDeniedError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
