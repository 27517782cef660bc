package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobboard/internal/jobs"
)

// JobHandler 暴露职位的发布、浏览与审核接口。
type JobHandler struct {
	jobs   *jobs.Manager
	logger *slog.Logger
}

func NewJobHandler(manager *jobs.Manager, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobs: manager, logger: logger}
}

type createJobRequest struct {
	Title               string `json:"title"`
	Description         string `json:"description"`
	Location            string `json:"location"`
	JobType             string `json:"job_type"`
	Experience          string `json:"experience"`
	MinSalary           int    `json:"min_salary"`
	MaxSalary           int    `json:"max_salary"`
	Vacancies           string `json:"vacancies"`
	CompanyName         string `json:"company_name"`
	CompanyWebsite      string `json:"company_website"`
	CompanyCIN          string `json:"company_cin"`
	CompanyDescription  string `json:"company_description"`
	CompanyAddress      string `json:"company_address"`
	DisclaimerConfirmed bool   `json:"disclaimer_confirmed"`
}

func (r createJobRequest) draft() jobs.Draft {
	return jobs.Draft{
		Title:               r.Title,
		Description:         r.Description,
		Location:            r.Location,
		JobType:             r.JobType,
		Experience:          r.Experience,
		MinSalary:           r.MinSalary,
		MaxSalary:           r.MaxSalary,
		Vacancies:           r.Vacancies,
		CompanyName:         r.CompanyName,
		CompanyWebsite:      r.CompanyWebsite,
		CompanyCIN:          r.CompanyCIN,
		CompanyDescription:  r.CompanyDescription,
		CompanyAddress:      r.CompanyAddress,
		DisclaimerConfirmed: r.DisclaimerConfirmed,
	}
}

// ListVisible 返回公开可见的职位，guest 也可访问。
func (h *JobHandler) ListVisible(c *gin.Context) {
	list, err := h.jobs.ListVisible(c.Request.Context())
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toJobViews(list, false)})
}

// GetVisible 返回单个可见职位。
func (h *JobHandler) GetVisible(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	job, err := h.jobs.GetVisible(c.Request.Context(), id)
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, toJobView(*job))
}

// Create 由雇主发布职位。
func (h *JobHandler) Create(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	job, err := h.jobs.Create(c.Request.Context(), sessionFrom(c), req.draft())
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusCreated, toJobView(*job))
}

// ListOwn 返回雇主自己发布的职位。
func (h *JobHandler) ListOwn(c *gin.Context) {
	list, err := h.jobs.ListOwn(c.Request.Context(), sessionFrom(c))
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toJobViews(list, false)})
}

// ToggleVisibility 切换职位隐藏状态。
func (h *JobHandler) ToggleVisibility(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	job, err := h.jobs.ToggleVisibility(c.Request.Context(), sessionFrom(c), id)
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, toJobView(*job))
}

// Delete 由所属雇主删除职位。
func (h *JobHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.jobs.Delete(c.Request.Context(), sessionFrom(c), id); err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAll 返回全部职位及风险评估，仅管理员。
func (h *JobHandler) ListAll(c *gin.Context) {
	list, err := h.jobs.ListAll(c.Request.Context(), sessionFrom(c))
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toJobViews(list, true)})
}

// ReviewQueue 返回待审核或带告警的职位。
func (h *JobHandler) ReviewQueue(c *gin.Context) {
	list, err := h.jobs.ReviewQueue(c.Request.Context(), sessionFrom(c))
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toJobViews(list, true)})
}

// Approve 审核通过职位。
func (h *JobHandler) Approve(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	job, err := h.jobs.Approve(c.Request.Context(), sessionFrom(c), id)
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, toJobView(*job))
}

// Reject 驳回职位。
func (h *JobHandler) Reject(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	job, err := h.jobs.Reject(c.Request.Context(), sessionFrom(c), id)
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, toJobView(*job))
}

// Block 永久删除欺诈职位。
func (h *JobHandler) Block(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.jobs.Block(c.Request.Context(), sessionFrom(c), id); err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.Status(http.StatusNoContent)
}
