package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/config"
	"github.com/seocore/seocore/pkg/models"
)

// WorkerPool manages a pool of job queue workers sharing one database
// connection pool and one registry of executors keyed by models.JobType.
type WorkerPool struct {
	podID     string
	db        *gorm.DB
	config    *config.QueueConfig
	executors map[models.JobType]JobExecutor
	workers   []*Worker
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup

	mu             sync.RWMutex
	activeJobCancels map[uint]context.CancelFunc
	started        bool
}

// NewWorkerPool creates a new worker pool. executors maps each job type the
// pool should claim to the executor that runs it; job types with no
// registered executor are never claimed by this pool.
func NewWorkerPool(podID string, db *gorm.DB, cfg *config.QueueConfig, executors map[models.JobType]JobExecutor) *WorkerPool {
	return &WorkerPool{
		podID:            podID,
		db:               db,
		config:           cfg,
		executors:        executors,
		workers:          make([]*Worker, 0, cfg.WorkerCount),
		stopCh:           make(chan struct{}),
		activeJobCancels: make(map[uint]context.CancelFunc),
	}
}

// Start spawns worker goroutines. It is safe to call multiple times;
// subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) error {
	if p.started {
		slog.Warn("job queue pool already started, ignoring duplicate Start call", "pod_id", p.podID)
		return nil
	}
	p.started = true

	slog.Info("starting job queue worker pool", "pod_id", p.podID, "worker_count", p.config.WorkerCount)

	for i := 0; i < p.config.WorkerCount; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", p.podID, i)
		worker := newWorker(workerID, p.podID, p.db, p.config, p.executors, p)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}

	return nil
}

// Stop signals all workers to stop and waits for in-flight jobs to finish.
func (p *WorkerPool) Stop() {
	slog.Info("stopping job queue worker pool gracefully")

	for _, worker := range p.workers {
		worker.Stop()
	}
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()

	slog.Info("job queue worker pool stopped")
}

// RegisterJob stores a cancel function for manual cancellation via the API.
func (p *WorkerPool) RegisterJob(jobID uint, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeJobCancels[jobID] = cancel
}

// UnregisterJob removes the cancel function once a job finishes.
func (p *WorkerPool) UnregisterJob(jobID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeJobCancels, jobID)
}

// CancelJob triggers context cancellation for a job on this pod. Returns
// true if the job was found and cancelled on this pod.
func (p *WorkerPool) CancelJob(jobID uint) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeJobCancels[jobID]; ok {
		cancel()
		return true
	}
	return false
}

// Health returns the current health status of the pool.
func (p *WorkerPool) Health() *PoolHealth {
	var queueDepth int64
	errQ := p.db.Model(&models.Job{}).Where("status = ?", models.JobStatusPending).Count(&queueDepth).Error
	if errQ != nil {
		slog.Error("failed to query job queue depth for health check", "pod_id", p.podID, "error", errQ)
	}

	var activeJobs int64
	errA := p.db.Model(&models.Job{}).Where("status = ?", models.JobStatusRunning).Count(&activeJobs).Error
	if errA != nil {
		slog.Error("failed to query active jobs for health check", "pod_id", p.podID, "error", errA)
	}

	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats := worker.Health()
		workerStats[i] = stats
		if stats.Status == string(workerStatusWorking) {
			activeWorkers++
		}
	}

	dbHealthy := errQ == nil && errA == nil
	isHealthy := len(p.workers) > 0 && int(activeJobs) <= p.config.MaxConcurrentJobs && dbHealthy

	var dbError string
	if !dbHealthy {
		switch {
		case errQ != nil:
			dbError = fmt.Sprintf("queue depth query failed: %v", errQ)
		case errA != nil:
			dbError = fmt.Sprintf("active jobs query failed: %v", errA)
		}
	}

	return &PoolHealth{
		IsHealthy:     isHealthy,
		DBReachable:   dbHealthy,
		DBError:       dbError,
		PodID:         p.podID,
		ActiveWorkers: activeWorkers,
		TotalWorkers:  len(p.workers),
		ActiveJobs:    int(activeJobs),
		MaxConcurrent: p.config.MaxConcurrentJobs,
		QueueDepth:    int(queueDepth),
		WorkerStats:   workerStats,
	}
}
