package repository

import (
	"context"
	"io"
	"os"

	"github.com/amankumarsingh77/doc-converter/internal/jobs"
	"github.com/amankumarsingh77/doc-converter/internal/models"
	"github.com/amankumarsingh77/doc-converter/pkg/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
)

type awsRepository struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucket     string
}

func NewAwsRepository(client *s3.Client, bucket string) jobs.AWSRepository {
	return &awsRepository{
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
		bucket:     bucket,
	}
}

func (a *awsRepository) PutObject(ctx context.Context, input *models.UploadInput) error {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		return errors.Wrap(err, "invalid upload input")
	}
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(input.Key),
		ContentType: aws.String(input.ContentType),
		Body:        input.File,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to upload %s", input.Key)
	}
	return nil
}

// GetObject streams an object; the caller closes the body.
func (a *awsRepository) GetObject(ctx context.Context, key string) (io.ReadCloser, string, error) {
	res, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, "", jobs.ErrOutputMissing
		}
		return nil, "", errors.Wrapf(err, "failed to download %s", key)
	}
	return res.Body, aws.ToString(res.ContentType), nil
}

func (a *awsRepository) DownloadFile(ctx context.Context, key, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create local file")
	}
	defer f.Close()

	if _, err = a.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return errors.Wrapf(err, "failed to download %s", key)
	}
	return nil
}

func (a *awsRepository) UploadFile(ctx context.Context, key, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "failed to open local file")
	}
	defer f.Close()

	return a.PutObject(ctx, &models.UploadInput{
		File:        f,
		Key:         key,
		ContentType: contentType,
	})
}

func (a *awsRepository) RemoveObject(ctx context.Context, key string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to remove %s", key)
	}
	return nil
}

func (a *awsRepository) Ping(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		return errors.Wrap(err, "bucket not reachable")
	}
	return nil
}
