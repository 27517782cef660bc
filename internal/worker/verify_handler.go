package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"jobboard/internal/apperror"
	"jobboard/internal/company"
	"jobboard/internal/database"
	"jobboard/internal/errcode"
	"jobboard/internal/notify"
	"jobboard/internal/role"
	"jobboard/internal/session"
	"jobboard/internal/tasks"
)

// PrincipalFinder 按 ID 读取身份记录。
type PrincipalFinder interface {
	FindByID(ctx context.Context, id uint) (*database.Principal, error)
}

// CompanyVerifier 执行批量公司认证。
type CompanyVerifier interface {
	VerifyCompany(ctx context.Context, s session.Session, companyName string, approve bool) (*company.Result, error)
}

// Notifier 向单个用户推送消息。
type Notifier interface {
	NotifyUser(ctx context.Context, userID uint, message any) error
}

// VerifyTaskHandler 负责消费批量公司认证任务。
type VerifyTaskHandler struct {
	principals PrincipalFinder
	resolver   *role.Resolver
	verifier   CompanyVerifier
	notifier   Notifier
	logger     *slog.Logger
}

// NewVerifyTaskHandler 创建任务处理器。
func NewVerifyTaskHandler(
	principals PrincipalFinder,
	resolver *role.Resolver,
	verifier CompanyVerifier,
	notifier Notifier,
	logger *slog.Logger,
) *VerifyTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerifyTaskHandler{
		principals: principals,
		resolver:   resolver,
		verifier:   verifier,
		notifier:   notifier,
		logger:     logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *VerifyTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.CompanyVerifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("company", payload.CompanyName),
		slog.Uint64("admin_id", uint64(payload.AdminID)),
	)
	log.Info("starting company verification task")

	msg := notify.CompanyVerificationMessage{
		Type:          notify.TypeCompanyVerification,
		CompanyName:   payload.CompanyName,
		Approve:       payload.Approve,
		CorrelationID: payload.CorrelationID,
	}

	principal, err := h.principals.FindByID(ctx, payload.AdminID)
	if err != nil {
		if apperror.IsNotFound(err) {
			log.Warn("admin principal not found, skipping task")
			return nil
		}
		log.Error("query principal failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil || errors.Is(retErr, asynq.SkipRetry) || !isFinalAsynqAttempt(ctx) {
			return
		}
		msg.ErrorCode = errcode.SystemError
		msg.ErrorMessage = strings.TrimSpace(retErr.Error())
		h.publish(ctx, log, principal.ID, msg)
	}()

	p := &role.Principal{ID: principal.ID, Email: principal.Email, Superuser: principal.Superuser}
	s := session.New(p, h.resolver.Resolve(ctx, p))

	result, err := h.verifier.VerifyCompany(ctx, s, payload.CompanyName, payload.Approve)
	switch {
	case apperror.IsAccessDenied(err) || apperror.IsUnauthenticated(err):
		log.Warn("company verification denied", slog.Any("error", err))
		msg.ErrorCode = errcode.AccessDenied
		msg.ErrorMessage = err.Error()
		h.publish(ctx, log, principal.ID, msg)
		return nil
	case apperror.IsNotFound(err) || apperror.IsValidation(err):
		msg.ErrorCode = errcode.NotFound
		msg.ErrorMessage = err.Error()
		h.publish(ctx, log, principal.ID, msg)
		return nil
	case apperror.IsPermissionDenied(err):
		log.Error("company verification rejected by store", slog.Any("error", err))
		msg.ErrorCode = errcode.PermissionDenied
		msg.ErrorMessage = err.Error()
		h.publish(ctx, log, principal.ID, msg)
		return fmt.Errorf("verify company %q: %v: %w", payload.CompanyName, err, asynq.SkipRetry)
	case err != nil:
		log.Error("company verification failed", slog.Any("error", err))
		return err
	}

	msg.Succeeded = result.Succeeded
	msg.ErrorCode = errcode.OK
	if result.Partial() {
		msg.ErrorCode = errcode.PartialFailure
		msg.ErrorMessage = "部分职位更新失败，已成功的更新不会回滚"
		msg.Failed = result.FailedMessages()
		log.Warn("company verification partially failed", slog.Int("failed", len(result.Failed)))
	}
	h.publish(ctx, log, principal.ID, msg)

	log.Info("company verification task completed")
	return nil
}

func (h *VerifyTaskHandler) publish(ctx context.Context, log *slog.Logger, userID uint, msg notify.CompanyVerificationMessage) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.NotifyUser(ctx, userID, msg); err != nil {
		log.Error("publish verification notification failed", slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
