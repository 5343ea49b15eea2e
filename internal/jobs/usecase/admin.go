package usecase

import (
	"context"
	"time"

	"github.com/amankumarsingh77/doc-converter/internal/jobs"
	"github.com/amankumarsingh77/doc-converter/internal/models"
	"github.com/pkg/errors"
)

const maxPeekCount = 100

func (u *jobUC) QueueStats(ctx context.Context) (models.QueueStats, error) {
	stats, err := u.redisRepo.Stats(ctx)
	if err != nil {
		u.logger.Errorf("QueueStats - Stats error: %v", err)
		return nil, err
	}
	return stats, nil
}

func (u *jobUC) PeekQueue(ctx context.Context, queue string, count int) ([]*models.QueueMessage, error) {
	known := false
	for _, q := range models.AllQueues {
		if q == queue {
			known = true
			break
		}
	}
	if !known {
		return nil, errors.Wrap(jobs.ErrUnknownQueue, queue)
	}
	if count > maxPeekCount {
		count = maxPeekCount
	}
	return u.redisRepo.Peek(ctx, queue, count)
}

// RetryUploaded re-dispatches every job whose original enqueue failed.
func (u *jobUC) RetryUploaded(ctx context.Context) (*models.RetryResult, error) {
	uploaded, err := u.jobRepo.ListByStatus(ctx, models.JobStatusUploaded)
	if err != nil {
		u.logger.Errorf("RetryUploaded - ListByStatus error: %v", err)
		return nil, err
	}

	result := &models.RetryResult{TotalUploaded: len(uploaded)}
	for _, job := range uploaded {
		if !job.ConversionType.IsValid() {
			u.logger.Warnf("Unknown conversion type for job %s: %s", job.ID, job.ConversionType)
			result.Failed++
			continue
		}
		msg := models.NewQueueMessage(job, u.cfg.Jobs.DefaultPriority, map[string]interface{}{
			"original_size": job.OriginalSize,
			"client_ip":     job.ClientIP,
			"retry":         true,
		})
		if err := u.dispatch(ctx, job, msg); err != nil {
			u.logger.Warnf("Failed to retry job %s: %v", job.ID, err)
			result.Failed++
			continue
		}
		u.logger.Infof("Retried job %s", job.ID)
		result.Retried++
	}
	return result, nil
}

// Cleanup purges expired jobs and their objects. A job whose objects cannot
// be removed is kept so the next run tries again.
func (u *jobUC) Cleanup(ctx context.Context) (*models.CleanupResult, error) {
	expiry := u.cfg.Jobs.ExpiryHours
	failedExpiry := u.cfg.Jobs.FailedExpiryHours
	now := u.now()

	expired, err := u.jobRepo.ListExpired(ctx,
		now.Add(-time.Duration(expiry)*time.Hour),
		now.Add(-time.Duration(failedExpiry)*time.Hour),
	)
	if err != nil {
		u.logger.Errorf("Cleanup - ListExpired error: %v", err)
		return nil, err
	}

	result := &models.CleanupResult{ExpiryHours: expiry, FailedExpiryHours: failedExpiry}
	for _, job := range expired {
		if err := u.removeJobObjects(ctx, job); err != nil {
			u.logger.Errorf("Error cleaning up job %s: %v", job.ID, err)
			continue
		}
		if err := u.jobRepo.Delete(ctx, job.ID); err != nil && !errors.Is(err, jobs.ErrJobNotFound) {
			u.logger.Errorf("Error deleting job %s: %v", job.ID, err)
			continue
		}
		result.CleanedJobs++
	}
	u.logger.Infof("Cleaned up %d expired jobs", result.CleanedJobs)
	return result, nil
}

func (u *jobUC) removeJobObjects(ctx context.Context, job *models.Job) error {
	for _, key := range []string{job.FilePath, job.OutputPath} {
		if key == "" {
			continue
		}
		if err := u.awsRepo.RemoveObject(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (u *jobUC) Health(ctx context.Context) *models.HealthReport {
	report := &models.HealthReport{
		Healthy:  true,
		Database: "connected",
		Redis:    "connected",
		Storage:  "connected",
	}
	if err := u.jobRepo.Ping(ctx); err != nil {
		u.logger.Errorf("Health check failed: database: %v", err)
		report.Healthy, report.Database = false, "error: "+err.Error()
	}
	if err := u.redisRepo.Ping(ctx); err != nil {
		u.logger.Errorf("Health check failed: redis: %v", err)
		report.Healthy, report.Redis = false, "error: "+err.Error()
	} else if stats, err := u.redisRepo.Stats(ctx); err == nil {
		report.QueueStats = stats
	}
	if err := u.awsRepo.Ping(ctx); err != nil {
		u.logger.Errorf("Health check failed: storage: %v", err)
		report.Healthy, report.Storage = false, "error: "+err.Error()
	}
	return report
}
