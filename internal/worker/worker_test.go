package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amankumarsingh77/doc-converter/internal/jobs/jobstest"
	"github.com/amankumarsingh77/doc-converter/internal/models"
	"github.com/amankumarsingh77/doc-converter/pkg/logger"
)

type converterFunc func(ctx context.Context, inputPath, outDir string, conversionType models.ConversionType) (string, error)

func (f converterFunc) Convert(ctx context.Context, inputPath, outDir string, conversionType models.ConversionType) (string, error) {
	return f(ctx, inputPath, outDir, conversionType)
}

// fakePDF writes a tiny PDF next to the input.
var fakePDF = converterFunc(func(_ context.Context, inputPath, outDir string, _ models.ConversionType) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", err
	}
	out := filepath.Join(outDir, "input.pdf")
	return out, os.WriteFile(out, []byte("%PDF-1.4\n%%EOF\n"), 0o600)
})

type harness struct {
	worker  *Worker
	repo    *jobstest.Repository
	queue   *jobstest.Queue
	storage *jobstest.Storage
}

func newHarness(t *testing.T, converter Converter, opts Options) *harness {
	t.Helper()
	h := &harness{
		repo:    jobstest.NewRepository(),
		queue:   jobstest.NewQueue(),
		storage: jobstest.NewStorage(),
	}
	family := &Family{
		Name:       FamilyDocxPDF,
		Service:    "docx-pdf-service",
		Queues:     []string{models.QueueDocxPDF},
		Converters: map[models.ConversionType]Converter{models.DocxToPDF: converter},
	}
	opts.TempDir = t.TempDir()
	if opts.ErrorBackoff == 0 {
		opts.ErrorBackoff = 5 * time.Millisecond
	}
	h.worker = NewWorker(family, opts, h.repo, h.queue, h.storage, logger.NewNopLogger())
	h.worker.cpuCheck = func(float64) (bool, float64) { return true, 0 }
	return h
}

func (h *harness) addJob(id string, status models.JobStatus, conversionType models.ConversionType) *models.QueueMessage {
	job := &models.Job{
		ID:             id,
		FileName:       "report.docx",
		ConversionType: conversionType,
		Status:         status,
		FilePath:       models.UploadKey(id, "report.docx"),
		MaxRetries:     3,
		CreatedAt:      time.Now().UTC(),
	}
	h.repo.Put(job)
	h.storage.Set(job.FilePath, []byte("PK\x03\x04 docx"), "application/zip")
	return models.NewQueueMessage(job, 1, nil)
}

func (h *harness) job(t *testing.T, id string) *models.Job {
	t.Helper()
	job, ok := h.repo.Get(id)
	if !ok {
		t.Fatalf("job %s missing", id)
	}
	return job
}

func TestWorker_ConvertsAndCompletes(t *testing.T) {
	h := newHarness(t, fakePDF, Options{})
	msg := h.addJob("job-1", models.JobStatusPending, models.DocxToPDF)

	if err := h.worker.handle(context.Background(), models.QueueDocxPDF, "docx-pdf-worker-1", msg); err != nil {
		t.Fatalf("handle returned error: %v", err)
	}

	job := h.job(t, "job-1")
	if job.Status != models.JobStatusCompleted {
		t.Fatalf("status = %s, want completed (error %q)", job.Status, job.ErrorMessage)
	}
	if job.OutputPath != "converted/job-1.pdf" {
		t.Fatalf("output path = %q", job.OutputPath)
	}
	if job.WorkerID != "docx-pdf-worker-1" || job.AssignedService != "docx-pdf-service" {
		t.Fatalf("claim fields not set: %+v", job)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Fatal("timestamps not set")
	}
	data, contentType, ok := h.storage.Object("converted/job-1.pdf")
	if !ok || !strings.HasPrefix(string(data), "%PDF") {
		t.Fatalf("output object missing or wrong: %q", data)
	}
	if contentType != "application/pdf" {
		t.Fatalf("content type = %q", contentType)
	}
	if len(h.worker.ActiveJobs()) != 0 {
		t.Fatal("active set not cleared")
	}
}

func TestWorker_ConversionFailures(t *testing.T) {
	tests := []struct {
		name      string
		converter Converter
		convType  models.ConversionType
		prepare   func(h *harness, msg *models.QueueMessage)
		want      string
	}{
		{
			name: "tool error",
			converter: converterFunc(func(context.Context, string, string, models.ConversionType) (string, error) {
				return "", errors.New("soffice exited 1")
			}),
			convType: models.DocxToPDF,
			want:     "soffice exited 1",
		},
		{
			name: "empty output",
			converter: converterFunc(func(_ context.Context, _, outDir string, _ models.ConversionType) (string, error) {
				out := filepath.Join(outDir, "input.pdf")
				return out, os.WriteFile(out, nil, 0o600)
			}),
			convType: models.DocxToPDF,
			want:     "conversion produced no output",
		},
		{
			name:      "missing input",
			converter: fakePDF,
			convType:  models.DocxToPDF,
			prepare: func(h *harness, msg *models.QueueMessage) {
				_ = h.storage.RemoveObject(context.Background(), msg.FilePath)
			},
			want: "failed to download input",
		},
		{
			name:      "unknown type",
			converter: fakePDF,
			convType:  models.PDFToPNG,
			want:      "unsupported conversion type",
		},
		{
			name: "panic",
			converter: converterFunc(func(context.Context, string, string, models.ConversionType) (string, error) {
				panic("boom")
			}),
			convType: models.DocxToPDF,
			want:     "conversion panicked: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.converter, Options{})
			msg := h.addJob("job-1", models.JobStatusPending, tt.convType)
			if tt.prepare != nil {
				tt.prepare(h, msg)
			}

			if err := h.worker.handle(context.Background(), models.QueueDocxPDF, "w-1", msg); err != nil {
				t.Fatalf("handle returned error: %v", err)
			}

			job := h.job(t, "job-1")
			if job.Status != models.JobStatusFailed {
				t.Fatalf("status = %s, want failed", job.Status)
			}
			if !strings.Contains(job.ErrorMessage, tt.want) {
				t.Fatalf("error message = %q, want %q", job.ErrorMessage, tt.want)
			}
			if job.OutputPath != "" {
				t.Fatalf("failed job has output path %q", job.OutputPath)
			}
			if len(h.worker.ActiveJobs()) != 0 {
				t.Fatal("active set not cleared")
			}
		})
	}
}

func TestWorker_ConversionTimeout(t *testing.T) {
	blocking := converterFunc(func(ctx context.Context, _, _ string, _ models.ConversionType) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	h := newHarness(t, blocking, Options{ConversionTimeout: 20 * time.Millisecond})
	msg := h.addJob("slow", models.JobStatusPending, models.DocxToPDF)

	if err := h.worker.handle(context.Background(), models.QueueDocxPDF, "w-1", msg); err != nil {
		t.Fatalf("handle returned error: %v", err)
	}

	job := h.job(t, "slow")
	if job.Status != models.JobStatusFailed || job.ErrorMessage != "conversion timeout after 20ms" {
		t.Fatalf("unexpected job %s %q", job.Status, job.ErrorMessage)
	}
}

func TestWorker_ClaimRace(t *testing.T) {
	t.Run("still uploaded is requeued", func(t *testing.T) {
		h := newHarness(t, fakePDF, Options{})
		msg := h.addJob("early", models.JobStatusUploaded, models.DocxToPDF)

		err := h.worker.handle(context.Background(), models.QueueDocxPDF, "w-1", msg)
		if !errors.Is(err, errJobNotReady) {
			t.Fatalf("expected errJobNotReady, got %v", err)
		}
		if h.queue.Requeued != 1 {
			t.Fatalf("requeued = %d, want 1", h.queue.Requeued)
		}
		if n, _ := h.queue.Size(context.Background(), models.QueueDocxPDF); n != 1 {
			t.Fatalf("queue size = %d, want 1", n)
		}
		if got := h.job(t, "early").Status; got != models.JobStatusUploaded {
			t.Fatalf("status = %s", got)
		}
	})

	for _, status := range []models.JobStatus{models.JobStatusCancelled, models.JobStatusProcessing, models.JobStatusCompleted} {
		t.Run(string(status)+" is dropped", func(t *testing.T) {
			h := newHarness(t, fakePDF, Options{})
			msg := h.addJob("taken", status, models.DocxToPDF)

			if err := h.worker.handle(context.Background(), models.QueueDocxPDF, "w-1", msg); err != nil {
				t.Fatalf("handle returned error: %v", err)
			}
			if h.queue.Requeued != 0 {
				t.Fatalf("message was requeued")
			}
			if got := h.job(t, "taken").Status; got != status {
				t.Fatalf("status changed to %s", got)
			}
		})
	}
}

func TestWorker_PersistenceErrorRequeues(t *testing.T) {
	h := newHarness(t, fakePDF, Options{})
	msg := h.addJob("job-1", models.JobStatusPending, models.DocxToPDF)
	h.repo.MarkErr = errors.New("connection refused")

	if err := h.worker.handle(context.Background(), models.QueueDocxPDF, "w-1", msg); err == nil {
		t.Fatal("expected error to trigger backoff")
	}
	if h.queue.Requeued != 1 {
		t.Fatalf("requeued = %d, want 1", h.queue.Requeued)
	}
	if got := h.job(t, "job-1").Status; got != models.JobStatusPending {
		t.Fatalf("status = %s, want pending", got)
	}
}

func TestWorker_StartDrainsQueueInPriorityOrder(t *testing.T) {
	order := make(chan string, 3)
	recording := converterFunc(func(ctx context.Context, inputPath, outDir string, ct models.ConversionType) (string, error) {
		order <- filepath.Base(filepath.Dir(outDir))
		return fakePDF(ctx, inputPath, outDir, ct)
	})
	h := newHarness(t, recording, Options{WorkerCount: 1, DequeueTimeout: 10 * time.Millisecond})
	ctx := context.Background()

	for _, p := range []struct {
		id       string
		priority int
	}{{"low", 1}, {"mid", 5}, {"high", 9}} {
		msg := h.addJob(p.id, models.JobStatusPending, models.DocxToPDF)
		msg.Priority = p.priority
		if err := h.queue.Enqueue(ctx, models.QueueDocxPDF, msg); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	if err := h.worker.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer h.worker.Stop()

	var got []string
	for i := 0; i < 3; i++ {
		select {
		case dir := <-order:
			got = append(got, strings.SplitN(dir, "-", 2)[0])
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, converted %v", got)
		}
	}
	if strings.Join(got, ",") != "high,mid,low" {
		t.Fatalf("order = %v, want high,mid,low", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for _, id := range []string{"low", "mid", "high"} {
		for h.job(t, id).Status != models.JobStatusCompleted {
			if time.Now().After(deadline) {
				t.Fatalf("job %s not completed", id)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestWorker_CPUGateHoldsQueue(t *testing.T) {
	h := newHarness(t, fakePDF, Options{
		WorkerCount:      1,
		MaxCPUUsage:      50,
		CPUCheckInterval: 5 * time.Millisecond,
		DequeueTimeout:   10 * time.Millisecond,
	})
	h.worker.cpuCheck = func(float64) (bool, float64) { return false, 99 }

	msg := h.addJob("job-1", models.JobStatusPending, models.DocxToPDF)
	if err := h.queue.Enqueue(context.Background(), models.QueueDocxPDF, msg); err != nil {
		t.Fatal(err)
	}
	if err := h.worker.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	h.worker.Stop()

	if n, _ := h.queue.Size(context.Background(), models.QueueDocxPDF); n != 1 {
		t.Fatalf("queue size = %d, want message left in place", n)
	}
	if got := h.job(t, "job-1").Status; got != models.JobStatusPending {
		t.Fatalf("status = %s, want pending", got)
	}
}

func TestWorker_StopWaitsForInFlightConversion(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	blocking := converterFunc(func(ctx context.Context, inputPath, outDir string, ct models.ConversionType) (string, error) {
		close(started)
		<-release
		return fakePDF(ctx, inputPath, outDir, ct)
	})
	h := newHarness(t, blocking, Options{WorkerCount: 1, DequeueTimeout: 10 * time.Millisecond})
	msg := h.addJob("busy", models.JobStatusPending, models.DocxToPDF)
	if err := h.queue.Enqueue(context.Background(), models.QueueDocxPDF, msg); err != nil {
		t.Fatal(err)
	}
	if err := h.worker.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("conversion never started")
	}
	if active := h.worker.ActiveJobs(); len(active) != 1 || active[0] != "busy" {
		t.Fatalf("active jobs = %v, want [busy]", active)
	}

	stopped := make(chan struct{})
	go func() {
		h.worker.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while a conversion was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the conversion finished")
	}

	if got := h.job(t, "busy").Status; got != models.JobStatusCompleted {
		t.Fatalf("status = %s, want completed", got)
	}
	if active := h.worker.ActiveJobs(); len(active) != 0 {
		t.Fatalf("active jobs = %v after Stop", active)
	}
}

// panickingRepo panics on selected status writes.
type panickingRepo struct {
	*jobstest.Repository
	onClaim    bool
	onComplete bool
}

func (r *panickingRepo) MarkProcessing(ctx context.Context, jobID, workerID, service string, startedAt time.Time) error {
	if r.onClaim {
		panic("driver: bad connection state")
	}
	return r.Repository.MarkProcessing(ctx, jobID, workerID, service, startedAt)
}

func (r *panickingRepo) MarkCompleted(ctx context.Context, jobID, outputPath string, completedAt time.Time) error {
	if r.onComplete {
		panic("driver: bad connection state")
	}
	return r.Repository.MarkCompleted(ctx, jobID, outputPath, completedAt)
}

func TestWorker_RecoversPanicOutsideConversion(t *testing.T) {
	tests := []struct {
		name   string
		repo   func(*jobstest.Repository) *panickingRepo
		status models.JobStatus
	}{
		{"claim", func(r *jobstest.Repository) *panickingRepo { return &panickingRepo{Repository: r, onClaim: true} }, models.JobStatusPending},
		{"completion", func(r *jobstest.Repository) *panickingRepo { return &panickingRepo{Repository: r, onComplete: true} }, models.JobStatusProcessing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, fakePDF, Options{})
			w := NewWorker(h.worker.family, h.worker.opts, tt.repo(h.repo), h.queue, h.storage, logger.NewNopLogger())
			msg := h.addJob("job-1", models.JobStatusPending, models.DocxToPDF)

			err := w.handle(context.Background(), models.QueueDocxPDF, "w-1", msg)
			if err == nil || !strings.Contains(err.Error(), "panic handling job job-1") {
				t.Fatalf("expected recovered panic error, got %v", err)
			}
			if len(w.ActiveJobs()) != 0 {
				t.Fatal("active set not cleared after panic")
			}
			if got := h.job(t, "job-1").Status; got != tt.status {
				t.Fatalf("status = %s, want %s", got, tt.status)
			}
		})
	}
}
