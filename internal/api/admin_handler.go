package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobboard/internal/company"
	"jobboard/internal/database"
	"jobboard/internal/jobs"
	"jobboard/internal/role"
)

// PrincipalCounter 统计身份总数。
type PrincipalCounter interface {
	Count(ctx context.Context) (int64, error)
}

// AdminHandler 提供管理后台概览。
type AdminHandler struct {
	jobs       *jobs.Manager
	principals PrincipalCounter
	logger     *slog.Logger
}

func NewAdminHandler(manager *jobs.Manager, principals PrincipalCounter, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{jobs: manager, principals: principals, logger: logger}
}

type statsResponse struct {
	JobsPosted        int   `json:"jobs_posted"`
	PendingOrFlagged  int   `json:"pending_or_flagged"`
	VerifiedCompanies int   `json:"verified_companies"`
	TotalPrincipals   int64 `json:"total_principals"`
}

// Stats 返回职位、待审核、认证公司与用户数量。
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	s := sessionFrom(c)
	logger := loggerFromContext(c, h.logger)

	if err := s.Require("view admin statistics", role.Admin); err != nil {
		respondError(c, logger, err)
		return
	}

	all, err := h.jobs.ListAll(ctx, s)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	total, err := h.principals.Count(ctx)
	if err != nil {
		respondError(c, logger, err)
		return
	}

	resp := statsResponse{
		JobsPosted:        len(all),
		VerifiedCompanies: company.Verified(company.AggregateAll(all)),
		TotalPrincipals:   total,
	}
	for _, j := range all {
		if j.Status == database.JobPending || j.HasWarning {
			resp.PendingOrFlagged++
		}
	}
	c.JSON(http.StatusOK, resp)
}
