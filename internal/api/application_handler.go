package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"jobboard/internal/applications"
	"jobboard/internal/database"
	"jobboard/internal/session"
	"jobboard/internal/storage"
)

// ApplicationHandler 暴露投递的提交与审阅接口。
type ApplicationHandler struct {
	applications  *applications.Manager
	scanner       storage.Scanner
	logger        *slog.Logger
	resumeLinkTTL time.Duration
}

func NewApplicationHandler(manager *applications.Manager, scanner storage.Scanner, logger *slog.Logger, resumeLinkTTL time.Duration) *ApplicationHandler {
	if scanner == nil {
		scanner = storage.NopScanner{}
	}
	if resumeLinkTTL <= 0 {
		resumeLinkTTL = 15 * time.Minute
	}
	return &ApplicationHandler{
		applications:  manager,
		scanner:       scanner,
		logger:        logger,
		resumeLinkTTL: resumeLinkTTL,
	}
}

// Submit 接收 multipart 表单：full_name、email、phone 与 PDF 简历 resume。
// 角色校验通过后，简历在写入存储之前先做病毒扫描。
func (h *ApplicationHandler) Submit(c *gin.Context) {
	jobID, ok := idParam(c)
	if !ok {
		return
	}
	logger := loggerFromContext(c, h.logger).With(slog.Uint64("job_id", uint64(jobID)))

	// 先判定角色，未授权的请求不读取也不扫描上传内容。
	s := sessionFrom(c)
	if err := h.applications.AuthorizeSubmit(s); err != nil {
		respondError(c, logger, err)
		return
	}

	form := applications.Form{
		FullName: c.PostForm("full_name"),
		Email:    c.PostForm("email"),
		Phone:    c.PostForm("phone"),
	}

	var resume *applications.Resume
	if file, err := c.FormFile("resume"); err == nil {
		scanReader, err := file.Open()
		if err != nil {
			Internal(c, "failed to open file")
			return
		}
		err = h.scanner.Scan(scanReader)
		scanReader.Close()
		if errors.Is(err, storage.ErrMalicious) {
			logger.Warn("malicious resume rejected", slog.String("file", file.Filename))
			BadRequest(c, "malicious file detected")
			return
		}
		if err != nil {
			logger.Error("scan resume failed", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return
		}

		body, err := file.Open()
		if err != nil {
			Internal(c, "failed to reopen file")
			return
		}
		defer body.Close()

		resume = &applications.Resume{
			Name:        file.Filename,
			Size:        file.Size,
			ContentType: file.Header.Get("Content-Type"),
			Body:        body,
		}
	}

	app, err := h.applications.Submit(c.Request.Context(), s, jobID, form, resume)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, toApplicationView(*app))
}

// ListMine 返回求职者自己的投递。
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	list, err := h.applications.ListMine(c.Request.Context(), sessionFrom(c))
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toApplicationViews(list)})
}

// ListReceived 返回雇主收到的投递。
func (h *ApplicationHandler) ListReceived(c *gin.Context) {
	list, err := h.applications.ListReceived(c.Request.Context(), sessionFrom(c))
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toApplicationViews(list)})
}

// Open 返回投递详情；Pending 投递首次被查看时标记为 Reviewed。
func (h *ApplicationHandler) Open(c *gin.Context) {
	h.transition(c, h.applications.Open)
}

// Shortlist 把投递标记为入围。
func (h *ApplicationHandler) Shortlist(c *gin.Context) {
	h.transition(c, h.applications.Shortlist)
}

// Reject 驳回投递。
func (h *ApplicationHandler) Reject(c *gin.Context) {
	h.transition(c, h.applications.Reject)
}

// ResumeLink 返回简历的限时下载链接。
func (h *ApplicationHandler) ResumeLink(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	url, err := h.applications.ResumeLink(c.Request.Context(), sessionFrom(c), id, h.resumeLinkTTL)
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expires_in": int(h.resumeLinkTTL.Seconds())})
}

type applicationTransition func(ctx context.Context, s session.Session, id uint) (*database.Application, error)

func (h *ApplicationHandler) transition(c *gin.Context, apply applicationTransition) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	app, err := apply(c.Request.Context(), sessionFrom(c), id)
	if err != nil {
		respondError(c, loggerFromContext(c, h.logger), err)
		return
	}
	c.JSON(http.StatusOK, toApplicationView(*app))
}
