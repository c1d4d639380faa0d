// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/config"
	"github.com/seocore/seocore/pkg/models"
)

// Service periodically enforces retention policies:
//   - Purges expired AIAnalysisCache rows past their TTL
//   - Prunes DailyTrafficSnapshot rows beyond the retention window
//   - Removes EditSession rows stuck in the failed status past their age
//
// All operations are idempotent and safe to run from multiple replicas.
type Service struct {
	config *config.RetentionConfig
	db     *gorm.DB

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg *config.RetentionConfig, db *gorm.DB) *Service {
	return &Service{
		config: cfg,
		db:     db,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("cleanup service started",
		"analysis_cache_ttl", s.config.AnalysisCacheTTL,
		"traffic_snapshot_retention_days", s.config.TrafficSnapshotRetentionDays,
		"failed_edit_session_retention_days", s.config.FailedEditSessionRetentionDays,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.purgeExpiredAnalysisCache(ctx)
	s.pruneOldTrafficSnapshots(ctx)
	s.purgeStaleFailedEditSessions(ctx)
}

func (s *Service) purgeExpiredAnalysisCache(ctx context.Context) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.AIAnalysisCache{})
	if result.Error != nil {
		slog.Error("retention: analysis cache purge failed", "error", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		slog.Info("retention: purged expired analysis cache rows", "count", result.RowsAffected)
	}
}

func (s *Service) pruneOldTrafficSnapshots(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.TrafficSnapshotRetentionDays)
	result := s.db.WithContext(ctx).
		Where("date < ?", cutoff).
		Delete(&models.DailyTrafficSnapshot{})
	if result.Error != nil {
		slog.Error("retention: traffic snapshot prune failed", "error", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		slog.Info("retention: pruned old traffic snapshots", "count", result.RowsAffected)
	}
}

func (s *Service) purgeStaleFailedEditSessions(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.FailedEditSessionRetentionDays)
	result := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.EditSessionFailed, cutoff).
		Delete(&models.EditSession{})
	if result.Error != nil {
		slog.Error("retention: stale failed edit session purge failed", "error", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		slog.Info("retention: purged stale failed edit sessions", "count", result.RowsAffected)
	}
}
