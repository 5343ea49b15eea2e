package repository

const (
	jobColumns = `id, filename, conversion_type, original_size, status, file_path, output_path,
		assigned_service, worker_id, created_at, started_at, completed_at, error_message,
		retry_count, max_retries, client_ip, user_agent, session_id`

	createJobQuery = `INSERT INTO jobs (id, filename, conversion_type, original_size, status, file_path,
					retry_count, max_retries, client_ip, user_agent, session_id)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING ` + jobColumns

	getJobByIDQuery = `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	getJobsQuery = `SELECT ` + jobColumns + ` FROM jobs
					WHERE ($1::text = '' OR status = $1)
					  AND ($2::text = '' OR conversion_type = $2)
					  AND ($3::text = '' OR session_id = $3)
					ORDER BY created_at DESC LIMIT $4 OFFSET $5`

	getTotalJobsQuery = `SELECT COUNT(id) FROM jobs
					WHERE ($1::text = '' OR status = $1)
					  AND ($2::text = '' OR conversion_type = $2)
					  AND ($3::text = '' OR session_id = $3)`

	getJobsByStatusQuery = `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1 ORDER BY created_at`

	getExpiredJobsQuery = `SELECT ` + jobColumns + ` FROM jobs
					WHERE (status = ANY($1) AND created_at < $2)
					   OR (status = $3 AND created_at < $4)`

	deleteJobQuery = `DELETE FROM jobs WHERE id = $1`

	markPendingQuery = `UPDATE jobs SET status = $2 WHERE id = $1 AND status = $3`

	markProcessingQuery = `UPDATE jobs SET status = $2, worker_id = $3, assigned_service = $4, started_at = $5
					WHERE id = $1 AND status = $6`

	markCompletedQuery = `UPDATE jobs SET status = $2, output_path = $3, completed_at = $4, error_message = ''
					WHERE id = $1 AND status = $5`

	markFailedQuery = `UPDATE jobs SET status = $2, error_message = $3, completed_at = $4
					WHERE id = $1 AND status = $5`

	markCancelledQuery = `UPDATE jobs SET status = $2, completed_at = $3
					WHERE id = $1 AND status = ANY($4)`
)
