package jobs

import (
	"context"
	"io"

	"github.com/amankumarsingh77/doc-converter/internal/models"
)

type AWSRepository interface {
	PutObject(ctx context.Context, input *models.UploadInput) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, string, error)
	DownloadFile(ctx context.Context, key, path string) error
	UploadFile(ctx context.Context, key, path, contentType string) error
	RemoveObject(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
