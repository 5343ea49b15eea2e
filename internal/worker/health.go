package worker

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status     string   `json:"status"`
	Service    string   `json:"service"`
	ActiveJobs []string `json:"active_jobs"`
}

func (w *Worker) Health() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{
			Status:     "healthy",
			Service:    w.family.Service,
			ActiveJobs: w.ActiveJobs(),
		})
	}
}

// MapHealthRoutes registers the worker's liveness endpoint.
func MapHealthRoutes(e *echo.Echo, w *Worker) {
	e.GET("/health", w.Health())
}
