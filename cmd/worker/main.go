package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/amankumarsingh77/doc-converter/internal/config"
	"github.com/amankumarsingh77/doc-converter/internal/jobs/repository"
	"github.com/amankumarsingh77/doc-converter/internal/worker"
	"github.com/amankumarsingh77/doc-converter/pkg/db/aws"
	"github.com/amankumarsingh77/doc-converter/pkg/db/postgres"
	"github.com/amankumarsingh77/doc-converter/pkg/db/redis"
	"github.com/amankumarsingh77/doc-converter/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfgFile, err := config.LoadConfig(config.ConfigPath())
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}

	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Family: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Worker.Family)

	family, err := worker.NewFamily(cfg)
	if err != nil {
		appLogger.Fatalf("invalid worker config: %s", err)
	}

	psqlDB, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to db: %s", err)
	}
	defer psqlDB.Close()

	redisClient, err := redis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	defer redisClient.Close()

	s3Client, err := aws.NewAWSClient(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		appLogger.Fatalf("could not connect to s3: %s", err)
	}

	w := worker.NewWorker(
		family,
		worker.OptionsFromConfig(cfg),
		repository.NewJobRepo(psqlDB),
		repository.NewQueueRedisRepo(redisClient),
		repository.NewAwsRepository(s3Client, cfg.S3.Bucket),
		appLogger,
	)
	if err := w.Start(context.Background()); err != nil {
		appLogger.Fatalf("could not start worker: %s", err)
	}

	e := echo.New()
	e.HideBanner = true
	worker.MapHealthRoutes(e, w)
	go func() {
		appLogger.Infof("%s health endpoint listening on %s", w.Service(), cfg.Worker.Port)
		if err := e.Start(cfg.Worker.Port); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Error starting health server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, os.Interrupt)
	<-quit
	appLogger.Info("Shutting down worker...")

	w.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		appLogger.Errorf("health server shutdown: %v", err)
	}
}
