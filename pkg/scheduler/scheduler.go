// Package scheduler implements C12 (spec.md §4.12): the six named
// periodic triggers that enqueue per-domain jobs, guarded by each
// domain's in-flight flag so overlapping fires are no-ops.
package scheduler

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/config"
	"github.com/seocore/seocore/pkg/models"
)

// trigger binds a named crontab entry to the job type it enqueues.
type trigger struct {
	name    string
	jobType models.JobType
}

// Scheduler owns a robfig/cron/v3 instance wired with one entry per
// SchedulerConfig field, each enqueuing a models.Job row per active
// domain (spec.md §4.12: "each scheduled trigger enqueues one job per
// domain").
type Scheduler struct {
	db  *gorm.DB
	cfg *config.SchedulerConfig
	cr  *cron.Cron
}

// New builds a Scheduler. Call Start to register entries and launch the
// cron loop.
func New(db *gorm.DB, cfg *config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		db:  db,
		cfg: cfg,
		cr:  cron.New(cron.WithLocation(time.Local)),
	}
}

// Start registers every configured trigger (empty crontab strings are
// skipped — "disabled" per SchedulerConfig's doc comment) and launches
// the cron scheduler loop in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	entries := []struct {
		spec string
		t    trigger
	}{
		{s.cfg.GSCSyncMorning, trigger{"gsc-sync-morning", models.JobTypeGSCRefresh}},
		{s.cfg.GSCSyncEvening, trigger{"gsc-sync-evening", models.JobTypeGSCRefresh}},
		{s.cfg.DailyFullScan, trigger{"daily-full-scan", models.JobTypeFullRefresh}},
		{s.cfg.DailyAIAnalysis, trigger{"daily-ai-analysis", models.JobTypeAIAnalysis}},
		{s.cfg.VectorEmbeddingUpdate, trigger{"vector-embedding-update", models.JobTypeVectorSync}},
		{s.cfg.EvaluateFixEffectiveness, trigger{"evaluate-fix-effectiveness", models.JobTypeEffectivenessEval}},
		{s.cfg.DailySnapshot, trigger{"daily-snapshot", models.JobTypeDailySnapshot}},
	}

	for _, e := range entries {
		if e.spec == "" {
			continue
		}
		t := e.t
		if _, err := s.cr.AddFunc(e.spec, func() { s.fire(ctx, t) }); err != nil {
			return &ScheduleError{Trigger: t.name, Spec: e.spec, Err: err}
		}
		slog.Info("scheduler: registered trigger", "name", t.name, "crontab", e.spec)
	}

	s.cr.Start()
	slog.Info("scheduler: started", "entries", len(s.cr.Entries()))
	return nil
}

// Stop halts the cron loop and waits for any in-progress entry to finish.
func (s *Scheduler) Stop() {
	ctx := s.cr.Stop()
	<-ctx.Done()
	slog.Info("scheduler: stopped")
}

// fire enqueues one job per active domain for t, skipping domains
// already in flight (spec.md §4.12's per-domain no-op guard).
func (s *Scheduler) fire(ctx context.Context, t trigger) {
	var domains []models.Domain
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&domains).Error; err != nil {
		slog.Error("scheduler: loading active domains failed", "trigger", t.name, "error", err)
		return
	}

	enqueued := 0
	for _, domain := range domains {
		if domain.ScanInFlight {
			continue
		}
		job := models.Job{
			Type:     t.jobType,
			Status:   models.JobStatusPending,
			DomainID: &domain.ID,
		}

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&job).Error; err != nil {
				return err
			}
			return tx.Model(&models.Domain{}).Where("id = ? AND scan_in_flight = ?", domain.ID, false).
				Updates(map[string]any{"scan_in_flight": true, "scan_job_id": strconv.FormatUint(uint64(job.ID), 10)}).Error
		})
		if err != nil {
			slog.Error("scheduler: enqueue failed", "trigger", t.name, "domain_id", domain.ID, "error", err)
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		slog.Info("scheduler: fired trigger", "name", t.name, "domains_enqueued", enqueued)
	}
}

