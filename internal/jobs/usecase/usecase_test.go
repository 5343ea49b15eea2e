package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/amankumarsingh77/doc-converter/internal/config"
	"github.com/amankumarsingh77/doc-converter/internal/jobs"
	"github.com/amankumarsingh77/doc-converter/internal/jobs/jobstest"
	"github.com/amankumarsingh77/doc-converter/internal/models"
	"github.com/amankumarsingh77/doc-converter/pkg/logger"
)

type fixture struct {
	uc      *jobUC
	repo    *jobstest.Repository
	queue   *jobstest.Queue
	storage *jobstest.Storage
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{MaxFileSize: 1024},
		Jobs: config.JobsConfig{
			DefaultPriority:   1,
			MaxRetries:        3,
			ExpiryHours:       24,
			FailedExpiryHours: 6,
		},
	}
	f := &fixture{
		repo:    jobstest.NewRepository(),
		queue:   jobstest.NewQueue(),
		storage: jobstest.NewStorage(),
		now:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.uc = NewJobUseCase(cfg, f.repo, f.queue, f.storage, logger.NewNopLogger()).(*jobUC)
	f.uc.now = func() time.Time { return f.now }
	return f
}

func uploadInput(name string) *models.FileUploadInput {
	return &models.FileUploadInput{
		FileName:  name,
		Content:   []byte("PK\x03\x04 document body"),
		ClientIP:  "10.0.0.1",
		UserAgent: "test",
		SessionID: "sess-1",
	}
}

func TestUpload_StoresRowAndQueues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.uc.Upload(ctx, uploadInput("report.docx"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if res.Status != models.JobStatusPending || res.ConversionType != models.DocxToPDF {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Message != msgQueued {
		t.Fatalf("unexpected message %q", res.Message)
	}

	job, ok := f.repo.Get(res.JobID)
	if !ok {
		t.Fatal("job row not created")
	}
	if job.Status != models.JobStatusPending || job.FilePath != "uploads/"+res.JobID+"_report.docx" {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.SessionID != "sess-1" || job.MaxRetries != 3 || job.OutputPath != "" {
		t.Fatalf("unexpected job fields %+v", job)
	}

	data, _, ok := f.storage.Object(job.FilePath)
	if !ok || string(data) != "PK\x03\x04 document body" {
		t.Fatalf("stored bytes not retrievable: %q", data)
	}

	msgs, _ := f.queue.Peek(ctx, models.QueueDocxPDF, 10)
	if len(msgs) != 1 || msgs[0].JobID != res.JobID || msgs[0].Priority != 1 {
		t.Fatalf("unexpected queue content %+v", msgs)
	}
	if msgs[0].Metadata["client_ip"] != "10.0.0.1" {
		t.Fatalf("metadata missing client ip: %v", msgs[0].Metadata)
	}
}

func TestUpload_ConversionTypeOverride(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.Upload(context.Background(), &models.FileUploadInput{
		FileName:       "scan.pdf",
		Content:        []byte("%PDF-1.4"),
		ConversionType: "pdf_to_png",
	})
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if res.ConversionType != models.PDFToPNG {
		t.Fatalf("conversion type = %s, want pdf_to_png", res.ConversionType)
	}
	if n, _ := f.queue.Size(context.Background(), models.QueuePDFImage); n != 1 {
		t.Fatalf("expected message on %s", models.QueuePDFImage)
	}

	// unknown overrides fall back to the extension
	res, err = f.uc.Upload(context.Background(), &models.FileUploadInput{
		FileName:       "scan.pdf",
		Content:        []byte("%PDF-1.4"),
		ConversionType: "pdf_to_gif",
	})
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if res.ConversionType != models.PDFToDocx {
		t.Fatalf("conversion type = %s, want pdf_to_docx", res.ConversionType)
	}
}

func TestUpload_IngestionErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.uc.Upload(ctx, uploadInput("notes.txt")); !errors.Is(err, jobs.ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
	if _, err := f.uc.Upload(ctx, uploadInput("")); !errors.Is(err, jobs.ErrUnsupportedFileType) {
		t.Fatalf("expected error for empty filename, got %v", err)
	}

	long := uploadInput(strings.Repeat("a", 300) + ".docx")
	_, err := f.uc.Upload(ctx, long)
	if !errors.Is(err, jobs.ErrInvalidUpload) || errors.Is(err, jobs.ErrUnsupportedFileType) {
		t.Fatalf("expected ErrInvalidUpload for long filename, got %v", err)
	}
	if !strings.Contains(err.Error(), "filename too long, maximum is 255 characters") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if strings.Contains(err.Error(), "no file provided") {
		t.Fatalf("long filename reported as missing: %q", err.Error())
	}

	badType := uploadInput("report.docx")
	badType.ConversionType = strings.Repeat("x", 40)
	if _, err := f.uc.Upload(ctx, badType); !errors.Is(err, jobs.ErrInvalidUpload) || !strings.Contains(err.Error(), "conversion type too long") {
		t.Fatalf("expected conversion type length error, got %v", err)
	}

	big := uploadInput("big.docx")
	big.Content = make([]byte, 2048)
	if _, err := f.uc.Upload(ctx, big); !errors.Is(err, jobs.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}

	if f.repo.Len() != 0 || len(f.storage.Keys()) != 0 {
		t.Fatal("ingestion errors must not create rows or objects")
	}
}

func TestUpload_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.storage.PutErr = errors.New("minio down")

	if _, err := f.uc.Upload(context.Background(), uploadInput("report.docx")); err == nil {
		t.Fatal("expected error when storage fails")
	}
	if f.repo.Len() != 0 {
		t.Fatal("no row may be written when storage fails")
	}
}

func TestUpload_InsertFailureRemovesObject(t *testing.T) {
	f := newFixture(t)
	f.repo.CreateErr = errors.New("db down")

	if _, err := f.uc.Upload(context.Background(), uploadInput("report.docx")); err == nil {
		t.Fatal("expected error when insert fails")
	}
	if keys := f.storage.Keys(); len(keys) != 0 {
		t.Fatalf("stored object should be removed, got %v", keys)
	}
}

func TestUpload_EnqueueFailureThenRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.queue.EnqueueErr = errors.New("redis down")

	res, err := f.uc.Upload(ctx, uploadInput("report.docx"))
	if err != nil {
		t.Fatalf("Upload must succeed when only enqueue fails: %v", err)
	}
	if res.Status != models.JobStatusUploaded || res.Message != msgUploaded {
		t.Fatalf("unexpected result %+v", res)
	}
	if job, _ := f.repo.Get(res.JobID); job.Status != models.JobStatusUploaded {
		t.Fatalf("job should stay uploaded, got %s", job.Status)
	}

	f.queue.EnqueueErr = nil
	retry, err := f.uc.RetryUploaded(ctx)
	if err != nil {
		t.Fatalf("RetryUploaded returned error: %v", err)
	}
	if retry.Retried != 1 || retry.Failed != 0 || retry.TotalUploaded != 1 {
		t.Fatalf("unexpected retry result %+v", retry)
	}
	if job, _ := f.repo.Get(res.JobID); job.Status != models.JobStatusPending {
		t.Fatalf("job should be pending after retry, got %s", job.Status)
	}
	msgs, _ := f.queue.Peek(ctx, models.QueueDocxPDF, 1)
	if len(msgs) != 1 || msgs[0].Metadata["retry"] != true {
		t.Fatalf("retry message should carry retry flag: %+v", msgs)
	}
}

func TestRetryUploaded_CountsFailures(t *testing.T) {
	f := newFixture(t)
	f.repo.Put(&models.Job{ID: "bad", ConversionType: "mp4_to_mp3", Status: models.JobStatusUploaded, FilePath: "uploads/bad_x"})
	f.repo.Put(&models.Job{ID: "ok", ConversionType: models.PNGToPDF, Status: models.JobStatusUploaded, FilePath: "uploads/ok_x.png"})

	res, err := f.uc.RetryUploaded(context.Background())
	if err != nil {
		t.Fatalf("RetryUploaded returned error: %v", err)
	}
	if res.Retried != 1 || res.Failed != 1 || res.TotalUploaded != 2 {
		t.Fatalf("unexpected retry result %+v", res)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.uc.Upload(ctx, uploadInput("report.docx"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if err = f.uc.Cancel(ctx, res.JobID); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	job, _ := f.repo.Get(res.JobID)
	if job.Status != models.JobStatusCancelled || job.CompletedAt == nil {
		t.Fatalf("unexpected job after cancel %+v", job)
	}
	if n, _ := f.queue.Size(ctx, models.QueueDocxPDF); n != 0 {
		t.Fatalf("message should be removed from queue, size=%d", n)
	}

	if err = f.uc.Cancel(ctx, res.JobID); !errors.Is(err, jobs.ErrJobNotCancellable) {
		t.Fatalf("cancelling a cancelled job: expected ErrJobNotCancellable, got %v", err)
	}
}

func TestCancel_RejectedStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, status := range []models.JobStatus{models.JobStatusProcessing, models.JobStatusCompleted, models.JobStatusFailed} {
		id := string(status)
		f.repo.Put(&models.Job{ID: id, ConversionType: models.DocxToPDF, Status: status, FilePath: "uploads/" + id})
		if err := f.uc.Cancel(ctx, id); !errors.Is(err, jobs.ErrJobNotCancellable) {
			t.Fatalf("%s: expected ErrJobNotCancellable, got %v", status, err)
		}
		if job, _ := f.repo.Get(id); job.Status != status {
			t.Fatalf("%s: status changed to %s", status, job.Status)
		}
	}

	if err := f.uc.Cancel(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestCancel_UploadedJob(t *testing.T) {
	f := newFixture(t)
	f.repo.Put(&models.Job{ID: "u", ConversionType: models.DocxToPDF, Status: models.JobStatusUploaded, FilePath: "uploads/u"})

	if err := f.uc.Cancel(context.Background(), "u"); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if job, _ := f.repo.Get("u"); job.Status != models.JobStatusCancelled {
		t.Fatalf("status = %s, want cancelled", job.Status)
	}
}

func TestDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.Put(&models.Job{
		ID: "done", FileName: "report.docx", ConversionType: models.DocxToPDF,
		Status: models.JobStatusCompleted, FilePath: "uploads/done_report.docx", OutputPath: "converted/done.pdf",
	})
	f.repo.Put(&models.Job{ID: "wip", FileName: "a.docx", ConversionType: models.DocxToPDF, Status: models.JobStatusProcessing})
	f.storage.Set("converted/done.pdf", []byte("%PDF"), "application/pdf")

	body, info, err := f.uc.Download(ctx, "done")
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "%PDF" || info.FileName != "report.pdf" || info.ContentType != "application/pdf" {
		t.Fatalf("unexpected download %q %+v", data, info)
	}

	if _, _, err = f.uc.Download(ctx, "wip"); !errors.Is(err, jobs.ErrJobNotCompleted) {
		t.Fatalf("expected ErrJobNotCompleted, got %v", err)
	}
	if _, _, err = f.uc.Download(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestListJobs_InvalidFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.uc.ListJobs(ctx, &models.JobFilter{Status: "running", Limit: 10}); !errors.Is(err, jobs.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter for status, got %v", err)
	}
	if _, err := f.uc.ListJobs(ctx, &models.JobFilter{ConversionType: "x", Limit: 10}); !errors.Is(err, jobs.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter for conversion type, got %v", err)
	}

	f.repo.Put(&models.Job{ID: "a", Status: models.JobStatusPending, SessionID: "s1", CreatedAt: f.now})
	f.repo.Put(&models.Job{ID: "b", Status: models.JobStatusPending, SessionID: "s2", CreatedAt: f.now})
	list, err := f.uc.ListJobs(ctx, &models.JobFilter{SessionID: "s1", Limit: 50})
	if err != nil {
		t.Fatalf("ListJobs returned error: %v", err)
	}
	if list.Total != 1 || list.Jobs[0].ID != "a" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestCleanup_Thresholds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	add := func(id string, status models.JobStatus, age time.Duration) {
		f.repo.Put(&models.Job{
			ID: id, Status: status, ConversionType: models.DocxToPDF,
			FilePath: "uploads/" + id, OutputPath: map[bool]string{true: "converted/" + id + ".pdf"}[status == models.JobStatusCompleted],
			CreatedAt: f.now.Add(-age),
		})
		f.storage.Set("uploads/"+id, []byte("x"), "")
	}
	add("completed-30h", models.JobStatusCompleted, 30*time.Hour)
	add("failed-10h", models.JobStatusFailed, 10*time.Hour)
	add("completed-2h", models.JobStatusCompleted, 2*time.Hour)
	add("failed-2h", models.JobStatusFailed, 2*time.Hour)
	add("cancelled-25h", models.JobStatusCancelled, 25*time.Hour)
	add("pending-48h", models.JobStatusPending, 48*time.Hour)
	f.storage.Set("converted/completed-30h.pdf", []byte("pdf"), "application/pdf")

	res, err := f.uc.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup returned error: %v", err)
	}
	if res.CleanedJobs != 3 || res.ExpiryHours != 24 || res.FailedExpiryHours != 6 {
		t.Fatalf("unexpected cleanup result %+v", res)
	}
	for _, gone := range []string{"completed-30h", "failed-10h", "cancelled-25h"} {
		if _, ok := f.repo.Get(gone); ok {
			t.Fatalf("%s should be deleted", gone)
		}
		if _, _, ok := f.storage.Object("uploads/" + gone); ok {
			t.Fatalf("%s input object should be deleted", gone)
		}
	}
	if _, _, ok := f.storage.Object("converted/completed-30h.pdf"); ok {
		t.Fatal("output object should be deleted")
	}
	for _, kept := range []string{"completed-2h", "failed-2h", "pending-48h"} {
		if _, ok := f.repo.Get(kept); !ok {
			t.Fatalf("%s should be kept", kept)
		}
	}
}

func TestCleanup_ObjectErrorSkipsRow(t *testing.T) {
	f := newFixture(t)
	f.repo.Put(&models.Job{ID: "stuck", Status: models.JobStatusFailed, FilePath: "uploads/stuck", CreatedAt: f.now.Add(-7 * time.Hour)})
	f.repo.Put(&models.Job{ID: "fine", Status: models.JobStatusFailed, FilePath: "uploads/fine", CreatedAt: f.now.Add(-7 * time.Hour)})
	f.storage.RemoveErr["uploads/stuck"] = errors.New("access denied")

	res, err := f.uc.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup returned error: %v", err)
	}
	if res.CleanedJobs != 1 {
		t.Fatalf("cleaned = %d, want 1", res.CleanedJobs)
	}
	if _, ok := f.repo.Get("stuck"); !ok {
		t.Fatal("row with undeletable object must be kept")
	}
}

func TestPeekQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.uc.PeekQueue(ctx, "queue:unknown", 5); !errors.Is(err, jobs.ErrUnknownQueue) {
		t.Fatalf("expected ErrUnknownQueue, got %v", err)
	}
	_ = f.queue.Enqueue(ctx, models.QueueImagePDF, &models.QueueMessage{JobID: "a", Priority: 1})
	_ = f.queue.Enqueue(ctx, models.QueueImagePDF, &models.QueueMessage{JobID: "b", Priority: 4})
	msgs, err := f.uc.PeekQueue(ctx, models.QueueImagePDF, 5)
	if err != nil {
		t.Fatalf("PeekQueue returned error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].JobID != "b" {
		t.Fatalf("unexpected peek %+v", msgs)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report := f.uc.Health(ctx)
	if !report.Healthy || report.Database != "connected" || len(report.QueueStats) != len(models.AllQueues) {
		t.Fatalf("unexpected healthy report %+v", report)
	}

	f.storage.PingErr = errors.New("bucket missing")
	report = f.uc.Health(ctx)
	if report.Healthy || report.Storage == "connected" {
		t.Fatalf("expected unhealthy storage, got %+v", report)
	}
}
