package jobstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amankumarsingh77/doc-converter/internal/jobs"
	"github.com/amankumarsingh77/doc-converter/internal/models"
)

// Repository is an in-memory jobs.Repository enforcing the same
// conditional transitions as the SQL implementation.
type Repository struct {
	mu   sync.Mutex
	jobs map[string]*models.Job

	CreateErr error
	PingErr   error
	DeleteErr map[string]error
	// MarkErr, when set, is returned by every Mark* call.
	MarkErr error
}

func NewRepository() *Repository {
	return &Repository{jobs: make(map[string]*models.Job), DeleteErr: make(map[string]error)}
}

func (r *Repository) Put(job *models.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
}

func (r *Repository) Get(jobID string) (*models.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, false
	}
	cp := *job
	return &cp, true
}

func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *Repository) Create(_ context.Context, job *models.Job) (*models.Job, error) {
	if r.CreateErr != nil {
		return nil, r.CreateErr
	}
	cp := *job
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	r.Put(&cp)
	return &cp, nil
}

func (r *Repository) GetByID(_ context.Context, jobID string) (*models.Job, error) {
	job, ok := r.Get(jobID)
	if !ok {
		return nil, jobs.ErrJobNotFound
	}
	return job, nil
}

func (r *Repository) List(_ context.Context, filter *models.JobFilter) (*models.JobList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]*models.Job, 0)
	for _, job := range r.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.ConversionType != "" && job.ConversionType != filter.ConversionType {
			continue
		}
		if filter.SessionID != "" && job.SessionID != filter.SessionID {
			continue
		}
		cp := *job
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if filter.Limit <= 0 || end > total {
		end = total
	}
	return &models.JobList{Jobs: matched[start:end], Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (r *Repository) ListByStatus(_ context.Context, status models.JobStatus) ([]*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Job, 0)
	for _, job := range r.jobs {
		if job.Status == status {
			cp := *job
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *Repository) ListExpired(_ context.Context, finishedBefore, failedBefore time.Time) ([]*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Job, 0)
	for _, job := range r.jobs {
		switch job.Status {
		case models.JobStatusCompleted, models.JobStatusCancelled:
			if !job.CreatedAt.Before(finishedBefore) {
				continue
			}
		case models.JobStatusFailed:
			if !job.CreatedAt.Before(failedBefore) {
				continue
			}
		default:
			continue
		}
		cp := *job
		out = append(out, &cp)
	}
	return out, nil
}

func (r *Repository) Delete(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.DeleteErr[jobID]; err != nil {
		return err
	}
	if _, ok := r.jobs[jobID]; !ok {
		return jobs.ErrJobNotFound
	}
	delete(r.jobs, jobID)
	return nil
}

func (r *Repository) Ping(context.Context) error {
	return r.PingErr
}

func (r *Repository) MarkPending(_ context.Context, jobID string) error {
	return r.transition(jobID, models.JobStatusPending, func(*models.Job) {})
}

func (r *Repository) MarkProcessing(_ context.Context, jobID, workerID, service string, startedAt time.Time) error {
	return r.transition(jobID, models.JobStatusProcessing, func(j *models.Job) {
		j.WorkerID = workerID
		j.AssignedService = service
		j.StartedAt = &startedAt
	})
}

func (r *Repository) MarkCompleted(_ context.Context, jobID, outputPath string, completedAt time.Time) error {
	if outputPath == "" {
		return jobs.ErrInvalidTransition
	}
	return r.transition(jobID, models.JobStatusCompleted, func(j *models.Job) {
		j.OutputPath = outputPath
		j.CompletedAt = &completedAt
		j.ErrorMessage = ""
	})
}

func (r *Repository) MarkFailed(_ context.Context, jobID, errorMessage string, completedAt time.Time) error {
	return r.transition(jobID, models.JobStatusFailed, func(j *models.Job) {
		j.ErrorMessage = errorMessage
		j.CompletedAt = &completedAt
	})
}

func (r *Repository) MarkCancelled(_ context.Context, jobID string, completedAt time.Time) error {
	return r.transition(jobID, models.JobStatusCancelled, func(j *models.Job) {
		j.CompletedAt = &completedAt
	})
}

func (r *Repository) transition(jobID string, to models.JobStatus, apply func(*models.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.MarkErr != nil {
		return r.MarkErr
	}
	job, ok := r.jobs[jobID]
	if !ok || !job.Status.CanTransitionTo(to) {
		return jobs.ErrInvalidTransition
	}
	job.Status = to
	apply(job)
	return nil
}
