package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seocore/seocore/pkg/config"
	"github.com/seocore/seocore/pkg/models"
)

type workerStatus string

const (
	workerStatusIdle    workerStatus = "idle"
	workerStatusWorking workerStatus = "working"
)

// jobRegistry is the subset of WorkerPool a Worker needs for cancellation
// registration.
type jobRegistry interface {
	RegisterJob(jobID uint, cancel context.CancelFunc)
	UnregisterJob(jobID uint)
}

// Worker polls for and processes pending jobs.
type Worker struct {
	id        string
	podID     string
	db        *gorm.DB
	config    *config.QueueConfig
	executors map[models.JobType]JobExecutor
	pool      jobRegistry
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu            sync.RWMutex
	status        workerStatus
	currentJobID  uint
	jobsProcessed int
	lastActivity  time.Time
}

func newWorker(id, podID string, db *gorm.DB, cfg *config.QueueConfig, executors map[models.JobType]JobExecutor, pool jobRegistry) *Worker {
	return &Worker{
		id:           id,
		podID:        podID,
		db:           db,
		config:       cfg,
		executors:    executors,
		pool:         pool,
		stopCh:       make(chan struct{}),
		status:       workerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish its current job.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("job worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("job worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, job worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoJobsAvailable) || errors.Is(err, ErrAtCapacity) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error processing job", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess checks capacity, claims a job, and runs it to completion.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	var activeCount int64
	if err := w.db.WithContext(ctx).Model(&models.Job{}).
		Where("status = ?", models.JobStatusRunning).
		Count(&activeCount).Error; err != nil {
		return fmt.Errorf("checking active jobs: %w", err)
	}
	if int(activeCount) >= w.config.MaxConcurrentJobs {
		return ErrAtCapacity
	}

	job, err := w.claimNextJob(ctx)
	if err != nil {
		return err
	}

	log := slog.With("job_id", job.ID, "job_type", job.Type, "worker_id", w.id)
	log.Info("job claimed")

	w.setStatus(workerStatusWorking, job.ID)
	defer w.setStatus(workerStatusIdle, 0)

	jobCtx, cancelJob := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancelJob()

	w.pool.RegisterJob(job.ID, cancelJob)
	defer w.pool.UnregisterJob(job.ID)

	executor, ok := w.executors[job.Type]
	if !ok {
		result := &ExecutionResult{Status: models.JobStatusFailed, Error: fmt.Errorf("no executor registered for job type %q", job.Type)}
		return w.finish(ctx, job, result, log)
	}

	progress := func(p models.Progress) {
		if err := w.db.WithContext(context.Background()).Model(&models.Job{}).
			Where("id = ?", job.ID).
			Updates(map[string]any{
				"current": p.Current,
				"total":   p.Total,
				"percent": p.Percent,
				"message": p.Message,
			}).Error; err != nil {
			log.Warn("failed to persist job progress", "error", err)
		}
	}

	result := executor.Execute(jobCtx, job, progress)
	if result == nil {
		result = synthesizeResult(jobCtx, w.config.JobTimeout)
	}
	if result.Status == "" {
		result = synthesizeResult(jobCtx, w.config.JobTimeout)
	}

	return w.finish(ctx, job, result, log)
}

// synthesizeResult produces a safe terminal result when the executor
// returns nil or an empty status, distinguishing timeout from cancellation.
func synthesizeResult(ctx context.Context, timeout time.Duration) *ExecutionResult {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &ExecutionResult{Status: models.JobStatusFailed, Error: fmt.Errorf("job timed out after %v", timeout)}
	case errors.Is(ctx.Err(), context.Canceled):
		return &ExecutionResult{Status: models.JobStatusFailed, Error: context.Canceled}
	default:
		return &ExecutionResult{Status: models.JobStatusFailed, Error: fmt.Errorf("executor returned no result")}
	}
}

// claimNextJob atomically claims the oldest pending job of a type this
// worker has an executor for, using SELECT ... FOR UPDATE SKIP LOCKED so
// concurrent workers (and replicas) never double-claim.
func (w *Worker) claimNextJob(ctx context.Context) (*models.Job, error) {
	types := make([]models.JobType, 0, len(w.executors))
	for t := range w.executors {
		types = append(types, t)
	}
	if len(types) == 0 {
		return nil, ErrNoJobsAvailable
	}

	var job models.Job
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND type IN ?", models.JobStatusPending, types).
			Order("created_at ASC").
			Limit(1).
			First(&job).Error
		if err != nil {
			return err
		}

		now := time.Now()
		return tx.Model(&models.Job{}).Where("id = ?", job.ID).Updates(map[string]any{
			"status":     models.JobStatusRunning,
			"started_at": now,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoJobsAvailable
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job.Status = models.JobStatusRunning
	return &job, nil
}

// finish writes the terminal status and result for a completed job.
func (w *Worker) finish(ctx context.Context, job *models.Job, result *ExecutionResult, log *slog.Logger) error {
	now := time.Now()
	updates := map[string]any{
		"status":       result.Status,
		"completed_at": now,
	}
	if result.Error != nil {
		updates["error"] = result.Error.Error()
	}
	if result.Result != nil {
		updates["result"] = datatypes.JSONMap(result.Result)
	}
	if result.Status == models.JobStatusCompleted {
		updates["percent"] = 100
	}

	if err := w.db.WithContext(context.Background()).Model(&models.Job{}).
		Where("id = ?", job.ID).Updates(updates).Error; err != nil {
		log.Error("failed to update terminal job status", "error", err)
		return err
	}

	if job.DomainID != nil {
		if err := w.db.WithContext(context.Background()).Model(&models.Domain{}).
			Where("id = ?", *job.DomainID).
			Updates(map[string]any{"scan_in_flight": false, "scan_job_id": ""}).Error; err != nil {
			log.Warn("failed to clear domain in-flight flag", "domain_id", *job.DomainID, "error", err)
		}
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	log.Info("job processing complete", "status", result.Status)
	return nil
}

// pollInterval returns the poll duration with jitter, matching the pacing
// convention used for Lighthouse/Search Console batch polling.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

func (w *Worker) setStatus(status workerStatus, jobID uint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
