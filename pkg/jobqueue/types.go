// Package jobqueue claims and executes models.Job rows with a pool of
// polling workers backed by Postgres row locking, generalized from the
// session queue worker pool.
package jobqueue

import (
	"context"
	"errors"
	"time"

	"github.com/seocore/seocore/pkg/models"
)

// Sentinel errors for queue operations.
var (
	// ErrNoJobsAvailable indicates no pending jobs are in the queue.
	ErrNoJobsAvailable = errors.New("no jobs available")

	// ErrAtCapacity indicates the global concurrent job limit has been reached.
	ErrAtCapacity = errors.New("at capacity")
)

// JobExecutor processes one job to completion and returns its terminal
// result. The worker owns claiming, heartbeat-free timeout enforcement,
// and the terminal status write; the executor only owns the actual work.
//
// Implementations should report incremental progress via the supplied
// ProgressFunc so GET /tasks/{id} reflects live percent/message fields.
type JobExecutor interface {
	Execute(ctx context.Context, job *models.Job, progress models.ProgressFunc) *ExecutionResult
}

// ExecutionResult is the terminal outcome of a job run.
type ExecutionResult struct {
	Status models.JobStatus
	Result map[string]any
	Error  error
}

// PoolHealth reports the health of the entire worker pool.
type PoolHealth struct {
	IsHealthy     bool           `json:"is_healthy"`
	DBReachable   bool           `json:"db_reachable"`
	DBError       string         `json:"db_error,omitempty"`
	PodID         string         `json:"pod_id"`
	ActiveWorkers int            `json:"active_workers"`
	TotalWorkers  int            `json:"total_workers"`
	ActiveJobs    int            `json:"active_jobs"`
	MaxConcurrent int            `json:"max_concurrent"`
	QueueDepth    int            `json:"queue_depth"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}

// WorkerHealth reports the health of a single worker.
type WorkerHealth struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"` // "idle" or "working"
	CurrentJobID    uint      `json:"current_job_id,omitempty"`
	JobsProcessed   int       `json:"jobs_processed"`
	LastActivity    time.Time `json:"last_activity"`
}
