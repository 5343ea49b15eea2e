// Package jobstest provides in-memory implementations of the jobs
// repositories for use in tests.
package jobstest

import "github.com/amankumarsingh77/doc-converter/internal/jobs"

var (
	_ jobs.Repository      = (*Repository)(nil)
	_ jobs.RedisRepository = (*Queue)(nil)
	_ jobs.AWSRepository   = (*Storage)(nil)
)
