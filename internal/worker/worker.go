package worker

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/amankumarsingh77/doc-converter/internal/jobs"
	"github.com/amankumarsingh77/doc-converter/pkg/logger"
	"github.com/amankumarsingh77/doc-converter/pkg/utils"
)

// Worker drains the queues of one Family with a fixed number of goroutines
// per queue.
type Worker struct {
	family    *Family
	opts      Options
	jobRepo   jobs.Repository
	redisRepo jobs.RedisRepository
	awsRepo   jobs.AWSRepository
	logger    logger.Logger

	cpuCheck func(maxCPUUsage float64) (bool, float64)
	now      func() time.Time

	mu     sync.Mutex
	active map[string]string
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(family *Family, opts Options, jobRepo jobs.Repository, redisRepo jobs.RedisRepository, awsRepo jobs.AWSRepository, log logger.Logger) *Worker {
	return &Worker{
		family:    family,
		opts:      opts.withDefaults(),
		jobRepo:   jobRepo,
		redisRepo: redisRepo,
		awsRepo:   awsRepo,
		logger:    log,
		cpuCheck:  utils.CheckCPUUsage,
		now:       func() time.Time { return time.Now().UTC() },
		active:    make(map[string]string),
	}
}

func (w *Worker) Service() string {
	return w.family.Service
}

// Start launches the consumer goroutines and returns immediately.
func (w *Worker) Start(ctx context.Context) error {
	if w.opts.TempDir != "" {
		if err := os.MkdirAll(w.opts.TempDir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create temp directory")
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.logger.Infof("Starting %s with %d workers per queue on %v", w.family.Service, w.opts.WorkerCount, w.family.Queues)
	n := 0
	for _, queue := range w.family.Queues {
		for i := 0; i < w.opts.WorkerCount; i++ {
			n++
			w.wg.Add(1)
			go w.run(ctx, queue, fmt.Sprintf("%s-worker-%d", w.family.Name, n))
		}
	}
	return nil
}

// Stop cancels the consumers and waits for in-flight jobs to finish.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Infof("%s stopped", w.family.Service)
}

// ActiveJobs returns the ids of jobs currently being converted.
func (w *Worker) ActiveJobs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.active))
	for id := range w.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *Worker) track(jobID, workerID string) {
	w.mu.Lock()
	w.active[jobID] = workerID
	w.mu.Unlock()
}

func (w *Worker) untrack(jobID string) {
	w.mu.Lock()
	delete(w.active, jobID)
	w.mu.Unlock()
}

func (w *Worker) run(ctx context.Context, queue, workerID string) {
	defer w.wg.Done()
	w.logger.Debugf("%s consuming %s", workerID, queue)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if w.opts.MaxCPUUsage > 0 {
			if ok, usage := w.cpuCheck(w.opts.MaxCPUUsage); !ok {
				w.logger.Infof("CPU usage is high: %.1f%%, %s pausing", usage, workerID)
				sleep(ctx, w.opts.CPUCheckInterval)
				continue
			}
		}

		msg, err := w.redisRepo.Dequeue(ctx, queue, w.opts.DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Errorf("%s dequeue error on %s: %v", workerID, queue, err)
			sleep(ctx, w.opts.ErrorBackoff)
			continue
		}
		if msg == nil {
			continue
		}

		if err := w.handle(ctx, queue, workerID, msg); err != nil {
			w.logger.Warnf("%s: %v", workerID, err)
			sleep(ctx, w.opts.ErrorBackoff)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
