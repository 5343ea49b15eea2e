package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amankumarsingh77/doc-converter/internal/config"
	"github.com/amankumarsingh77/doc-converter/internal/jobs"
	"github.com/amankumarsingh77/doc-converter/internal/models"
	"github.com/amankumarsingh77/doc-converter/pkg/logger"
	"github.com/amankumarsingh77/doc-converter/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const (
	serviceName      = "job-manager-service"
	defaultPeekCount = 10
)

type jobHandler struct {
	cfg    *config.Config
	jobUC  jobs.UseCase
	logger logger.Logger
}

func NewJobHandler(cfg *config.Config, jobUC jobs.UseCase, log logger.Logger) jobs.Handler {
	return &jobHandler{
		cfg:    cfg,
		jobUC:  jobUC,
		logger: log,
	}
}

type sessionJobList struct {
	*models.JobList
	SessionID string `json:"session_id"`
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, jobs.ErrJobNotFound), errors.Is(err, jobs.ErrOutputMissing):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrJobNotCancellable),
		errors.Is(err, jobs.ErrJobNotCompleted),
		errors.Is(err, jobs.ErrInvalidFilter),
		errors.Is(err, jobs.ErrUnsupportedFileType),
		errors.Is(err, jobs.ErrInvalidUpload),
		errors.Is(err, jobs.ErrUnknownQueue):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func errorResponse(c echo.Context, err error) error {
	return c.JSON(errorStatus(err), map[string]string{"error": err.Error()})
}

func (h *jobHandler) Upload() echo.HandlerFunc {
	return func(c echo.Context) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "No file provided"})
		}
		src, err := fileHeader.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid file"})
		}
		defer src.Close()

		var reader io.Reader = src
		if limit := h.cfg.Server.MaxFileSize; limit > 0 {
			reader = io.LimitReader(src, limit+1)
		}
		content, err := io.ReadAll(reader)
		if err != nil {
			h.logger.Errorf("Upload - ReadAll RequestID: %s, error: %v", utils.GetRequestID(c), err)
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid file"})
		}

		res, err := h.jobUC.Upload(c.Request().Context(), &models.FileUploadInput{
			FileName:       fileHeader.Filename,
			Content:        content,
			ConversionType: c.FormValue("conversion_type"),
			ClientIP:       utils.GetIPAddress(c),
			UserAgent:      c.Request().UserAgent(),
			SessionID:      utils.GetSessionID(c),
		})
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func (h *jobHandler) GetStatus() echo.HandlerFunc {
	return func(c echo.Context) error {
		job, err := h.jobUC.GetJob(c.Request().Context(), c.Param("job_id"))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, job)
	}
}

func (h *jobHandler) Download() echo.HandlerFunc {
	return func(c echo.Context) error {
		body, info, err := h.jobUC.Download(c.Request().Context(), c.Param("job_id"))
		if err != nil {
			return errorResponse(c, err)
		}
		defer body.Close()

		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", info.FileName))
		return c.Stream(http.StatusOK, info.ContentType, body)
	}
}

func (h *jobHandler) filterFromCtx(c echo.Context) (*models.JobFilter, error) {
	pagination, err := utils.GetPaginationFromCtx(c)
	if err != nil {
		return nil, errors.Wrap(jobs.ErrInvalidFilter, err.Error())
	}
	return &models.JobFilter{
		Status:         models.JobStatus(c.QueryParam("status")),
		ConversionType: models.ConversionType(c.QueryParam("conversion_type")),
		Limit:          pagination.GetLimit(),
		Offset:         pagination.GetOffset(),
	}, nil
}

func (h *jobHandler) ListJobs() echo.HandlerFunc {
	return func(c echo.Context) error {
		filter, err := h.filterFromCtx(c)
		if err != nil {
			return errorResponse(c, err)
		}
		list, err := h.jobUC.ListJobs(c.Request().Context(), filter)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func (h *jobHandler) ListSessionJobs() echo.HandlerFunc {
	return func(c echo.Context) error {
		filter, err := h.filterFromCtx(c)
		if err != nil {
			return errorResponse(c, err)
		}
		filter.SessionID = utils.GetSessionID(c)
		list, err := h.jobUC.ListJobs(c.Request().Context(), filter)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, sessionJobList{JobList: list, SessionID: filter.SessionID})
	}
}

func (h *jobHandler) CancelJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID := c.Param("job_id")
		if err := h.jobUC.Cancel(c.Request().Context(), jobID); err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, map[string]string{
			"job_id":  jobID,
			"status":  string(models.JobStatusCancelled),
			"message": "Job cancelled successfully",
		})
	}
}

func (h *jobHandler) QueueStatus() echo.HandlerFunc {
	return func(c echo.Context) error {
		stats, err := h.jobUC.QueueStats(c.Request().Context())
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"service":   serviceName,
			"queues":    stats,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func (h *jobHandler) PeekQueue() echo.HandlerFunc {
	return func(c echo.Context) error {
		queue := c.Param("queue")
		if !strings.HasPrefix(queue, "queue:") {
			queue = "queue:" + queue
		}
		count := defaultPeekCount
		if raw := c.QueryParam("count"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid count"})
			}
			count = n
		}
		messages, err := h.jobUC.PeekQueue(c.Request().Context(), queue, count)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"queue":    queue,
			"messages": messages,
		})
	}
}

func (h *jobHandler) RetryUploaded() echo.HandlerFunc {
	return func(c echo.Context) error {
		res, err := h.jobUC.RetryUploaded(c.Request().Context())
		if err != nil {
			return errorResponse(c, err)
		}
		message := "No uploaded jobs to retry"
		if res.TotalUploaded > 0 {
			message = fmt.Sprintf("Retry complete: %d queued, %d failed", res.Retried, res.Failed)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"message":        message,
			"retried":        res.Retried,
			"failed":         res.Failed,
			"total_uploaded": res.TotalUploaded,
		})
	}
}

func (h *jobHandler) Cleanup() echo.HandlerFunc {
	return func(c echo.Context) error {
		res, err := h.jobUC.Cleanup(c.Request().Context())
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"cleaned_jobs":        res.CleanedJobs,
			"expiry_hours":        res.ExpiryHours,
			"failed_expiry_hours": res.FailedExpiryHours,
			"message":             fmt.Sprintf("Successfully cleaned up %d expired jobs", res.CleanedJobs),
		})
	}
}

func (h *jobHandler) Health() echo.HandlerFunc {
	return func(c echo.Context) error {
		report := h.jobUC.Health(c.Request().Context())
		status, code := "healthy", http.StatusOK
		if !report.Healthy {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		return c.JSON(code, map[string]interface{}{
			"status":      status,
			"service":     serviceName,
			"database":    report.Database,
			"redis":       report.Redis,
			"storage":     report.Storage,
			"queue_stats": report.QueueStats,
		})
	}
}
