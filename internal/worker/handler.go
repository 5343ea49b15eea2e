package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/amankumarsingh77/doc-converter/internal/jobs"
	"github.com/amankumarsingh77/doc-converter/internal/models"
)

var errJobNotReady = errors.New("job not yet pending")

// handle claims msg and, if the claim succeeds, runs the conversion to a
// terminal status. A non-nil error asks the caller to back off.
func (w *Worker) handle(ctx context.Context, queue, workerID string, msg *models.QueueMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.untrack(msg.JobID)
			w.logger.Errorf("%s recovered panic on job %s: %v", workerID, msg.JobID, r)
			err = errors.Errorf("panic handling job %s: %v", msg.JobID, r)
		}
	}()

	// The message is already off the queue; finish bookkeeping even if the
	// pool is shutting down.
	claimCtx := context.WithoutCancel(ctx)

	err = w.jobRepo.MarkProcessing(claimCtx, msg.JobID, workerID, w.family.Service, w.now())
	if err != nil {
		if !errors.Is(err, jobs.ErrInvalidTransition) {
			if rqErr := w.redisRepo.Requeue(claimCtx, queue, msg); rqErr != nil {
				w.logger.Errorf("Requeue job %s error: %v", msg.JobID, rqErr)
			}
			return errors.Wrapf(err, "claim job %s", msg.JobID)
		}

		job, getErr := w.jobRepo.GetByID(claimCtx, msg.JobID)
		if getErr == nil && job.Status == models.JobStatusUploaded {
			if rqErr := w.redisRepo.Requeue(claimCtx, queue, msg); rqErr != nil {
				w.logger.Errorf("Requeue job %s error: %v", msg.JobID, rqErr)
			}
			return errors.Wrapf(errJobNotReady, "job %s", msg.JobID)
		}
		w.logger.Infof("Dropping message for job %s: not claimable", msg.JobID)
		return nil
	}

	w.execute(workerID, msg)
	return nil
}

func (w *Worker) execute(workerID string, msg *models.QueueMessage) {
	w.track(msg.JobID, workerID)
	defer w.untrack(msg.JobID)

	w.logger.Infof("%s processing job %s (%s)", workerID, msg.JobID, msg.ConversionType)
	start := w.now()

	ctx, cancel := context.WithTimeout(context.Background(), w.opts.ConversionTimeout)
	defer cancel()

	outputKey, err := w.convert(ctx, msg)
	finished := w.now()
	if err != nil {
		reason := err.Error()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = fmt.Sprintf("conversion timeout after %s", w.opts.ConversionTimeout)
		}
		w.logger.Errorf("Job %s failed: %s", msg.JobID, reason)
		if err := w.jobRepo.MarkFailed(context.Background(), msg.JobID, reason, finished); err != nil {
			w.logger.Errorf("MarkFailed job %s error: %v", msg.JobID, err)
		}
		return
	}

	if err := w.jobRepo.MarkCompleted(context.Background(), msg.JobID, outputKey, finished); err != nil {
		w.logger.Errorf("MarkCompleted job %s error: %v", msg.JobID, err)
		return
	}
	w.logger.Infof("Job %s completed in %s", msg.JobID, finished.Sub(start))
}

func (w *Worker) convert(ctx context.Context, msg *models.QueueMessage) (outputKey string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("conversion panicked: %v", r)
		}
	}()

	converter, ok := w.family.Converters[msg.ConversionType]
	if !ok {
		return "", errors.Errorf("unsupported conversion type: %s", msg.ConversionType)
	}

	workDir, err := os.MkdirTemp(w.opts.TempDir, msg.JobID+"-")
	if err != nil {
		return "", errors.Wrap(err, "failed to create work directory")
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "input"+strings.ToLower(filepath.Ext(msg.FileName)))
	if err := w.awsRepo.DownloadFile(ctx, msg.FilePath, inputPath); err != nil {
		return "", errors.Wrap(err, "failed to download input")
	}

	outDir := filepath.Join(workDir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create output directory")
	}

	outputPath, err := converter.Convert(ctx, inputPath, outDir, msg.ConversionType)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return "", errors.New("conversion produced no output")
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(outputPath)), ".")
	contentType := "application/octet-stream"
	if mtype, err := mimetype.DetectFile(outputPath); err == nil {
		contentType = mtype.String()
	}

	outputKey = models.OutputKey(msg.JobID, ext)
	if err := w.awsRepo.UploadFile(ctx, outputKey, outputPath, contentType); err != nil {
		return "", errors.Wrap(err, "failed to upload output")
	}
	return outputKey, nil
}
