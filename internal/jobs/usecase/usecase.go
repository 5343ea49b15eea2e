package usecase

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/amankumarsingh77/doc-converter/internal/config"
	"github.com/amankumarsingh77/doc-converter/internal/jobs"
	"github.com/amankumarsingh77/doc-converter/internal/models"
	"github.com/amankumarsingh77/doc-converter/pkg/logger"
	"github.com/amankumarsingh77/doc-converter/pkg/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	msgUploaded = "File uploaded successfully"
	msgQueued   = "File uploaded and conversion queued successfully"
)

type jobUC struct {
	cfg       *config.Config
	jobRepo   jobs.Repository
	redisRepo jobs.RedisRepository
	awsRepo   jobs.AWSRepository
	logger    logger.Logger
	now       func() time.Time
}

func NewJobUseCase(
	cfg *config.Config,
	jobRepo jobs.Repository,
	redisRepo jobs.RedisRepository,
	awsRepo jobs.AWSRepository,
	log logger.Logger,
) jobs.UseCase {
	return &jobUC{
		cfg:       cfg,
		jobRepo:   jobRepo,
		redisRepo: redisRepo,
		awsRepo:   awsRepo,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Upload stores the file, records the job and tries to dispatch it. A
// dispatch failure leaves the job UPLOADED for RetryUploaded to pick up.
func (u *jobUC) Upload(ctx context.Context, input *models.FileUploadInput) (*models.UploadResult, error) {
	if input == nil {
		return nil, errors.New("invalid input: input is nil")
	}
	if err := utils.ValidateStruct(ctx, input); err != nil {
		u.logger.Errorf("Upload - ValidateStruct error: %v", err)
		return nil, uploadValidationError(err)
	}
	fileName := filepath.Base(strings.ReplaceAll(input.FileName, "\\", "/"))

	convType, err := resolveConversionType(fileName, input.ConversionType)
	if err != nil {
		return nil, err
	}
	if limit := u.cfg.Server.MaxFileSize; limit > 0 && int64(len(input.Content)) > limit {
		return nil, errors.Wrapf(jobs.ErrFileTooLarge, "maximum size is %dMB", limit/(1024*1024))
	}

	jobID := uuid.New().String()
	key := models.UploadKey(jobID, fileName)
	if err = u.awsRepo.PutObject(ctx, &models.UploadInput{
		File:        bytes.NewReader(input.Content),
		Key:         key,
		ContentType: mimetype.Detect(input.Content).String(),
		Size:        int64(len(input.Content)),
	}); err != nil {
		u.logger.Errorf("Upload - PutObject error: %v", err)
		return nil, errors.Wrap(err, "failed to upload file to storage")
	}

	job, err := u.jobRepo.Create(ctx, &models.Job{
		ID:             jobID,
		FileName:       fileName,
		ConversionType: convType,
		OriginalSize:   int64(len(input.Content)),
		Status:         models.JobStatusUploaded,
		FilePath:       key,
		MaxRetries:     u.cfg.Jobs.MaxRetries,
		ClientIP:       input.ClientIP,
		UserAgent:      input.UserAgent,
		SessionID:      input.SessionID,
	})
	if err != nil {
		u.logger.Errorf("Upload - Create error: %v", err)
		if rmErr := u.awsRepo.RemoveObject(ctx, key); rmErr != nil {
			u.logger.Warnf("Upload - RemoveObject %s after failed insert: %v", key, rmErr)
		}
		return nil, err
	}
	u.logger.Infof("File uploaded for job %s, now queuing", jobID)

	result := &models.UploadResult{
		JobID:          jobID,
		FileName:       fileName,
		ConversionType: convType,
		Status:         models.JobStatusUploaded,
		Message:        msgUploaded,
	}

	msg := models.NewQueueMessage(job, u.cfg.Jobs.DefaultPriority, map[string]interface{}{
		"original_size": job.OriginalSize,
		"client_ip":     job.ClientIP,
	})
	if err = u.dispatch(ctx, job, msg); err != nil {
		u.logger.Warnf("Failed to queue job %s, file is stored and job stays uploaded: %v", jobID, err)
		return result, nil
	}

	result.Status = models.JobStatusPending
	result.Message = msgQueued
	u.logger.Infof("Job %s queued successfully", jobID)
	return result, nil
}

// dispatch enqueues msg and moves the job to PENDING.
func (u *jobUC) dispatch(ctx context.Context, job *models.Job, msg *models.QueueMessage) error {
	err := u.redisRepo.Enqueue(ctx, job.ConversionType.Queue(), msg)
	if err != nil && !errors.Is(err, jobs.ErrMessageExists) {
		return err
	}
	return u.jobRepo.MarkPending(ctx, job.ID)
}

func resolveConversionType(fileName, override string) (models.ConversionType, error) {
	if ct := models.ConversionType(override); ct.IsValid() {
		return ct, nil
	}
	if ct, ok := models.InferConversionType(fileName); ok {
		return ct, nil
	}
	return "", errors.Wrap(jobs.ErrUnsupportedFileType, "supported: .docx, .pdf, .jpg, .png")
}

func (u *jobUC) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := u.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if !errors.Is(err, jobs.ErrJobNotFound) {
			u.logger.Errorf("GetJob - GetByID error: %v", err)
		}
		return nil, err
	}
	return job, nil
}

func (u *jobUC) ListJobs(ctx context.Context, filter *models.JobFilter) (*models.JobList, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, errors.Wrapf(jobs.ErrInvalidFilter, "invalid status: %s", filter.Status)
	}
	if filter.ConversionType != "" && !filter.ConversionType.IsValid() {
		return nil, errors.Wrapf(jobs.ErrInvalidFilter, "invalid conversion type: %s", filter.ConversionType)
	}
	list, err := u.jobRepo.List(ctx, filter)
	if err != nil {
		u.logger.Errorf("ListJobs - List error: %v", err)
		return nil, err
	}
	return list, nil
}

func (u *jobUC) Download(ctx context.Context, jobID string) (io.ReadCloser, models.DownloadInfo, error) {
	job, err := u.GetJob(ctx, jobID)
	if err != nil {
		return nil, models.DownloadInfo{}, err
	}
	if job.Status != models.JobStatusCompleted {
		return nil, models.DownloadInfo{}, errors.Wrapf(jobs.ErrJobNotCompleted, "current status: %s", job.Status)
	}
	if job.OutputPath == "" {
		return nil, models.DownloadInfo{}, jobs.ErrOutputMissing
	}
	body, _, err := u.awsRepo.GetObject(ctx, job.OutputPath)
	if err != nil {
		if !errors.Is(err, jobs.ErrOutputMissing) {
			u.logger.Errorf("Download - GetObject error: %v", err)
		}
		return nil, models.DownloadInfo{}, err
	}
	return body, job.DownloadInfo(), nil
}

// Cancel stops a job that no worker has claimed yet.
func (u *jobUC) Cancel(ctx context.Context, jobID string) error {
	job, err := u.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.Status.CanTransitionTo(models.JobStatusCancelled) {
		return errors.Wrapf(jobs.ErrJobNotCancellable, "status: %s", job.Status)
	}

	if job.Status == models.JobStatusPending {
		if _, err = u.redisRepo.Remove(ctx, job.ConversionType.Queue(), job.ID); err != nil {
			u.logger.Warnf("Cancel - Remove job %s from queue: %v", job.ID, err)
		}
	}

	if err = u.jobRepo.MarkCancelled(ctx, job.ID, u.now()); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			// claimed by a worker in the meantime
			return errors.Wrap(jobs.ErrJobNotCancellable, "job was picked up for processing")
		}
		u.logger.Errorf("Cancel - MarkCancelled error: %v", err)
		return err
	}
	u.logger.Infof("Cancelled job %s", job.ID)
	return nil
}

// uploadValidationError turns a FileUploadInput validation failure into a
// client error naming the offending field.
func uploadValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.Wrap(jobs.ErrInvalidUpload, err.Error())
	}
	fe := verrs[0]
	switch {
	case fe.Field() == "FileName" && fe.Tag() == "required":
		return errors.Wrap(jobs.ErrUnsupportedFileType, "no file provided")
	case fe.Tag() == "lte":
		return errors.Wrapf(jobs.ErrInvalidUpload, "%s too long, maximum is %s characters", fieldLabel(fe.Field()), fe.Param())
	}
	return errors.Wrapf(jobs.ErrInvalidUpload, "%s failed %q validation", fieldLabel(fe.Field()), fe.Tag())
}

func fieldLabel(field string) string {
	switch field {
	case "FileName":
		return "filename"
	case "ConversionType":
		return "conversion type"
	}
	return strings.ToLower(field)
}
