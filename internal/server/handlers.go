package server

import (
	"fmt"
	"net/http"

	jobsHttp "github.com/amankumarsingh77/doc-converter/internal/jobs/delivery/http"
	jobsRepository "github.com/amankumarsingh77/doc-converter/internal/jobs/repository"
	jobsUsecase "github.com/amankumarsingh77/doc-converter/internal/jobs/usecase"
	apiMiddlewares "github.com/amankumarsingh77/doc-converter/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// multipart framing on top of the file itself
const uploadOverheadBytes = 1 << 20

func (s *Server) MapHandlers(e *echo.Echo) error {
	jRepo := jobsRepository.NewJobRepo(s.db)
	jRedisRepo := jobsRepository.NewQueueRedisRepo(s.redisClient)
	jAWSRepo := jobsRepository.NewAwsRepository(s.s3Client, s.cfg.S3.Bucket)

	jobsUC := jobsUsecase.NewJobUseCase(s.cfg, jRepo, jRedisRepo, jAWSRepo, s.logger)
	jobsHandlers := jobsHttp.NewJobHandler(s.cfg, jobsUC, s.logger)

	mw := apiMiddlewares.NewMiddlewareManager(s.cfg, s.cfg.Server.CorsOrigins, s.logger)

	e.Use(middleware.RequestID())
	e.Use(mw.RequestLoggerMiddleware)
	e.Use(mw.CORS())
	e.Use(mw.Recover())
	if s.cfg.Server.MaxFileSize > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dK", (s.cfg.Server.MaxFileSize+uploadOverheadBytes)/1024)))
	}
	e.Use(mw.SessionMiddleware)

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service":     "File Converter - Job Manager",
			"version":     s.cfg.Server.AppVersion,
			"status":      "running",
			"description": "Central job orchestration and management",
		})
	})

	jobsHttp.MapJobRoutes(e, jobsHandlers)
	jobsHttp.MapAdminRoutes(e.Group("/admin"), jobsHandlers)
	return nil
}
