package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/amankumarsingh77/doc-converter/internal/jobs"
	"github.com/amankumarsingh77/doc-converter/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

type jobRepo struct {
	db *sqlx.DB
}

func NewJobRepo(db *sqlx.DB) jobs.Repository {
	return &jobRepo{
		db: db,
	}
}

func (r *jobRepo) Create(ctx context.Context, job *models.Job) (*models.Job, error) {
	created := &models.Job{}
	if err := r.db.QueryRowxContext(
		ctx,
		createJobQuery,
		job.ID,
		job.FileName,
		job.ConversionType,
		job.OriginalSize,
		job.Status,
		job.FilePath,
		job.RetryCount,
		job.MaxRetries,
		job.ClientIP,
		job.UserAgent,
		job.SessionID,
	).StructScan(created); err != nil {
		return nil, errors.Wrap(err, "failed to create job")
	}
	return created, nil
}

func (r *jobRepo) GetByID(ctx context.Context, jobID string) (*models.Job, error) {
	job := &models.Job{}
	if err := r.db.QueryRowxContext(ctx, getJobByIDQuery, jobID).StructScan(job); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, jobs.ErrJobNotFound
		}
		return nil, errors.Wrap(err, "failed to get job by id")
	}
	return job, nil
}

func (r *jobRepo) List(ctx context.Context, filter *models.JobFilter) (*models.JobList, error) {
	var totalCount int
	if err := r.db.GetContext(
		ctx,
		&totalCount,
		getTotalJobsQuery,
		string(filter.Status),
		string(filter.ConversionType),
		filter.SessionID,
	); err != nil {
		return nil, errors.Wrap(err, "failed to get total jobs count")
	}
	if totalCount == 0 {
		return &models.JobList{
			Jobs:   make([]*models.Job, 0),
			Total:  0,
			Limit:  filter.Limit,
			Offset: filter.Offset,
		}, nil
	}

	rows, err := r.db.QueryxContext(
		ctx,
		getJobsQuery,
		string(filter.Status),
		string(filter.ConversionType),
		filter.SessionID,
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list jobs")
	}
	list, err := scanJobs(rows, filter.Limit)
	if err != nil {
		return nil, err
	}
	return &models.JobList{
		Jobs:   list,
		Total:  totalCount,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func (r *jobRepo) ListByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	rows, err := r.db.QueryxContext(ctx, getJobsByStatusQuery, status)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s jobs", status)
	}
	return scanJobs(rows, 0)
}

func (r *jobRepo) ListExpired(ctx context.Context, finishedBefore, failedBefore time.Time) ([]*models.Job, error) {
	rows, err := r.db.QueryxContext(
		ctx,
		getExpiredJobsQuery,
		pq.Array([]string{string(models.JobStatusCompleted), string(models.JobStatusCancelled)}),
		finishedBefore,
		models.JobStatusFailed,
		failedBefore,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list expired jobs")
	}
	return scanJobs(rows, 0)
}

func (r *jobRepo) Delete(ctx context.Context, jobID string) error {
	res, err := r.db.ExecContext(ctx, deleteJobQuery, jobID)
	if err != nil {
		return errors.Wrap(err, "failed to delete job")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to delete job")
	}
	if n == 0 {
		return jobs.ErrJobNotFound
	}
	return nil
}

func (r *jobRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *jobRepo) MarkPending(ctx context.Context, jobID string) error {
	return r.transition(ctx, models.JobStatusPending, markPendingQuery,
		jobID, models.JobStatusPending, models.JobStatusUploaded)
}

func (r *jobRepo) MarkProcessing(ctx context.Context, jobID, workerID, service string, startedAt time.Time) error {
	return r.transition(ctx, models.JobStatusProcessing, markProcessingQuery,
		jobID, models.JobStatusProcessing, workerID, service, startedAt, models.JobStatusPending)
}

func (r *jobRepo) MarkCompleted(ctx context.Context, jobID, outputPath string, completedAt time.Time) error {
	if outputPath == "" {
		return errors.Wrap(jobs.ErrInvalidTransition, "completed job requires an output path")
	}
	return r.transition(ctx, models.JobStatusCompleted, markCompletedQuery,
		jobID, models.JobStatusCompleted, outputPath, completedAt, models.JobStatusProcessing)
}

func (r *jobRepo) MarkFailed(ctx context.Context, jobID, errorMessage string, completedAt time.Time) error {
	return r.transition(ctx, models.JobStatusFailed, markFailedQuery,
		jobID, models.JobStatusFailed, errorMessage, completedAt, models.JobStatusProcessing)
}

func (r *jobRepo) MarkCancelled(ctx context.Context, jobID string, completedAt time.Time) error {
	return r.transition(ctx, models.JobStatusCancelled, markCancelledQuery,
		jobID, models.JobStatusCancelled, completedAt,
		pq.Array([]string{string(models.JobStatusUploaded), string(models.JobStatusPending)}))
}

func (r *jobRepo) transition(ctx context.Context, to models.JobStatus, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "failed to mark job %s", to)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to mark job %s", to)
	}
	if n == 0 {
		return errors.Wrapf(jobs.ErrInvalidTransition, "job %v -> %s", args[0], to)
	}
	return nil
}

func scanJobs(rows *sqlx.Rows, capacity int) ([]*models.Job, error) {
	defer rows.Close()
	list := make([]*models.Job, 0, capacity)
	for rows.Next() {
		job := &models.Job{}
		if err := rows.StructScan(job); err != nil {
			return nil, errors.Wrap(err, "failed to scan job")
		}
		list = append(list, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan jobs")
	}
	return list, nil
}
