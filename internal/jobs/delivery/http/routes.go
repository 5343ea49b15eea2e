package http

import (
	"github.com/amankumarsingh77/doc-converter/internal/jobs"
	"github.com/labstack/echo/v4"
)

func MapJobRoutes(e *echo.Echo, h jobs.Handler) {
	e.POST("/upload", h.Upload())
	e.GET("/status/:job_id", h.GetStatus())
	e.GET("/download/:job_id", h.Download())
	e.GET("/jobs", h.ListJobs())
	e.GET("/session/jobs", h.ListSessionJobs())
	e.DELETE("/jobs/:job_id", h.CancelJob())
	e.GET("/health", h.Health())
}

func MapAdminRoutes(adminGroup *echo.Group, h jobs.Handler) {
	adminGroup.GET("/queue/status", h.QueueStatus())
	adminGroup.GET("/queue/:queue/peek", h.PeekQueue())
	adminGroup.POST("/retry-uploaded", h.RetryUploaded())
	adminGroup.POST("/cleanup", h.Cleanup())
}
