package jobs

import (
	"context"
	"time"

	"github.com/amankumarsingh77/doc-converter/internal/models"
)

type RedisRepository interface {
	Enqueue(ctx context.Context, queue string, msg *models.QueueMessage) error
	Requeue(ctx context.Context, queue string, msg *models.QueueMessage) error
	Dequeue(ctx context.Context, queue string, timeout time.Duration) (*models.QueueMessage, error)
	Peek(ctx context.Context, queue string, count int) ([]*models.QueueMessage, error)
	Remove(ctx context.Context, queue, jobID string) (bool, error)
	Size(ctx context.Context, queue string) (int64, error)
	Stats(ctx context.Context) (models.QueueStats, error)
	Ping(ctx context.Context) error
}
