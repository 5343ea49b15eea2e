package jobs

import (
	"context"
	"time"

	"github.com/amankumarsingh77/doc-converter/internal/models"
)

// Repository persists jobs. Every status change is a conditional update on
// the expected source status and returns ErrInvalidTransition when the row
// is not in that status.
type Repository interface {
	Create(ctx context.Context, job *models.Job) (*models.Job, error)
	GetByID(ctx context.Context, jobID string) (*models.Job, error)
	List(ctx context.Context, filter *models.JobFilter) (*models.JobList, error)
	ListByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error)
	ListExpired(ctx context.Context, finishedBefore, failedBefore time.Time) ([]*models.Job, error)
	Delete(ctx context.Context, jobID string) error
	Ping(ctx context.Context) error

	MarkPending(ctx context.Context, jobID string) error
	MarkProcessing(ctx context.Context, jobID, workerID, service string, startedAt time.Time) error
	MarkCompleted(ctx context.Context, jobID, outputPath string, completedAt time.Time) error
	MarkFailed(ctx context.Context, jobID, errorMessage string, completedAt time.Time) error
	MarkCancelled(ctx context.Context, jobID string, completedAt time.Time) error
}
