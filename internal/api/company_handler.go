package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"jobboard/internal/api/middleware"
	"jobboard/internal/company"
	"jobboard/internal/jobs"
	"jobboard/internal/role"
	"jobboard/internal/tasks"
)

// TaskEnqueuer 是 asynq.Client 的最小接口。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// CompanyHandler 暴露公司聚合状态、批量认证与 CIN 校验。
type CompanyHandler struct {
	jobs     *jobs.Manager
	verifier *company.Verifier
	queue    TaskEnqueuer
	logger   *slog.Logger
}

func NewCompanyHandler(manager *jobs.Manager, verifier *company.Verifier, queue TaskEnqueuer, logger *slog.Logger) *CompanyHandler {
	return &CompanyHandler{jobs: manager, verifier: verifier, queue: queue, logger: logger}
}

// List 返回全部公司的聚合认证状态，仅管理员。
func (h *CompanyHandler) List(c *gin.Context) {
	all, err := h.jobs.ListAll(c.Request.Context(), sessionFrom(c))
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": company.AggregateAll(all)})
}

// Profile 返回职位所属公司的资料与聚合状态。
func (h *CompanyHandler) Profile(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	job, err := h.jobs.GetVisible(ctx, id)
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	siblings, err := h.jobs.ListByCompany(ctx, job.CompanyName)
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":        job.CompanyName,
		"website":     job.CompanyWebsite,
		"cin":         job.CompanyCIN,
		"description": job.CompanyDescription,
		"aggregate":   company.AggregateStatus(siblings, job.CompanyName),
	})
}

type verifyCompanyRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	Approve     bool   `json:"approve"`
	Async       bool   `json:"async"`
}

// Verify 对公司名下全部职位批量通过或驳回。
// 同步模式全部成功返回 200，部分失败返回 207；异步模式入队后返回 202，结果经 WebSocket 推送。
func (h *CompanyHandler) Verify(c *gin.Context) {
	var req verifyCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	s := sessionFrom(c)
	logger := loggerFromContext(c, h.logger).With(
		slog.String("company", req.CompanyName),
		slog.Bool("approve", req.Approve),
	)

	if req.Async {
		if err := s.Require("verify a company", role.Admin); err != nil {
			respondError(c, logger, err)
			return
		}
		if h.queue == nil {
			Error(c, http.StatusServiceUnavailable, "task queue unavailable")
			return
		}
		task, err := tasks.NewCompanyVerifyTask(strings.TrimSpace(req.CompanyName), req.Approve, s.PrincipalID(), middleware.GetCorrelationID(c))
		if err != nil {
			logger.Error("build verify task failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		info, err := h.queue.EnqueueContext(ctx, task)
		if err != nil {
			logger.Error("enqueue verify task failed", slog.Any("error", err))
			Internal(c, "failed to enqueue task")
			return
		}
		logger.Info("company verification enqueued", slog.String("task_id", info.ID))
		c.JSON(http.StatusAccepted, gin.H{"message": "company verification accepted", "task_id": info.ID})
		return
	}

	result, err := h.verifier.VerifyCompany(ctx, s, req.CompanyName, req.Approve)
	if err != nil {
		respondError(c, logger, err)
		return
	}

	status := http.StatusOK
	if result.Partial() {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{
		"company_name": result.CompanyName,
		"approve":      result.Approve,
		"succeeded":    result.Succeeded,
		"failed":       result.FailedMessages(),
		"aggregate":    result.Aggregate,
	})
}

type verifyCINRequest struct {
	CIN string `json:"cin"`
}

// VerifyCIN 校验公司识别号格式。
func (h *CompanyHandler) VerifyCIN(c *gin.Context) {
	var req verifyCINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := jobs.ValidateCIN(req.CIN); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "message": "CIN verified"})
}
