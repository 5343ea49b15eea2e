package jobs

import "github.com/labstack/echo/v4"

type Handler interface {
	Upload() echo.HandlerFunc
	GetStatus() echo.HandlerFunc
	Download() echo.HandlerFunc
	ListJobs() echo.HandlerFunc
	ListSessionJobs() echo.HandlerFunc
	CancelJob() echo.HandlerFunc

	QueueStatus() echo.HandlerFunc
	PeekQueue() echo.HandlerFunc
	RetryUploaded() echo.HandlerFunc
	Cleanup() echo.HandlerFunc
	Health() echo.HandlerFunc
}
