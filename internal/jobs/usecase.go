package jobs

import (
	"context"
	"io"

	"github.com/amankumarsingh77/doc-converter/internal/models"
)

type UseCase interface {
	Upload(ctx context.Context, input *models.FileUploadInput) (*models.UploadResult, error)
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context, filter *models.JobFilter) (*models.JobList, error)
	Download(ctx context.Context, jobID string) (io.ReadCloser, models.DownloadInfo, error)
	Cancel(ctx context.Context, jobID string) error

	QueueStats(ctx context.Context) (models.QueueStats, error)
	PeekQueue(ctx context.Context, queue string, count int) ([]*models.QueueMessage, error)
	RetryUploaded(ctx context.Context) (*models.RetryResult, error)
	Cleanup(ctx context.Context) (*models.CleanupResult, error)
	Health(ctx context.Context) *models.HealthReport
}
