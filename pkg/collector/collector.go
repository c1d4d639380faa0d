// Package collector implements the per-page metrics collection pass
// (spec.md §4.3): a batched index-state lookup followed by a worker
// pool of Lighthouse fetches, each page's snapshot persisted atomically
// before the index-state and search-analytics fields are back-filled.
// Grounded on the teacher's queue worker pool for the fan-out shape and
// on pkg/discovery for the "single failed source never aborts the
// batch" convention.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/lighthouse"
	"github.com/seocore/seocore/pkg/models"
	"github.com/seocore/seocore/pkg/ratelimiter"
	"github.com/seocore/seocore/pkg/searchconsole"
	"github.com/seocore/seocore/pkg/workerpool"
)

const (
	defaultWorkerCount  = 10
	indexStateBatchSize = 100
)

// Collector runs the two-phase collection algorithm for a batch of pages
// belonging to one domain.
type Collector struct {
	db           *gorm.DB
	lighthouse   *lighthouse.Client
	searchConsole *searchconsole.Client // nil when the domain has no GSC site configured
	limiters     *ratelimiter.Registry
	workerCount  int
}

// New builds a Collector. searchConsoleClient may be nil when GSC
// integration is unavailable for this domain; index-state and
// search-analytics back-fill are then skipped entirely (non-fatal, per
// §4.3.2.c).
func New(db *gorm.DB, lh *lighthouse.Client, sc *searchconsole.Client, limiters *ratelimiter.Registry) *Collector {
	return &Collector{
		db:            db,
		lighthouse:    lh,
		searchConsole: sc,
		limiters:      limiters,
		workerCount:   defaultWorkerCount,
	}
}

// pageResult is the outcome of processing a single page; collected for
// logging only, since per-page failures never abort the batch.
type pageResult struct {
	pageID uint
	err    error
}

// CollectBatch runs the collector against pages belonging to domain,
// returning the number of pages successfully snapshotted. Individual
// page failures are logged and excluded from that count; they never
// fail the batch.
func (c *Collector) CollectBatch(ctx context.Context, domain *models.Domain, pages []models.Page) (int, error) {
	if len(pages) == 0 {
		return 0, nil
	}

	indexState := c.fetchIndexStateBatch(ctx, domain, pages)

	results := workerpool.Run(pages, c.workerCount, func(page models.Page) pageResult {
		err := c.collectPage(ctx, domain, page, indexState[page.URL])
		return pageResult{pageID: page.ID, err: err}
	})

	successCount := 0
	for _, r := range results {
		if r.err == nil {
			successCount++
		} else {
			slog.Warn("page collection failed", "page_id", r.pageID, "domain_id", domain.ID, "error", r.err)
		}
	}
	return successCount, nil
}

// fetchIndexStateBatch runs phase 1: one batched URL-Inspection call for
// up to indexStateBatchSize URLs, falling back to sequential (still
// rate-limited) inspection when the batch itself errors.
func (c *Collector) fetchIndexStateBatch(ctx context.Context, domain *models.Domain, pages []models.Page) map[string]searchconsole.IndexStatus {
	result := make(map[string]searchconsole.IndexStatus, len(pages))
	if c.searchConsole == nil || domain.SearchConsoleSiteURL == "" {
		return result
	}

	urls := make([]string, 0, len(pages))
	for _, p := range pages {
		urls = append(urls, p.URL)
	}

	limiter := c.limiters.Batch(ratelimiter.KindSearchConsole)
	release, err := limiter.Acquire(ctx)
	if err != nil {
		slog.Warn("could not acquire search console rate limit for batch index state", "error", err)
		return result
	}

	statuses := c.searchConsole.BatchInspectURLs(ctx, domain.SearchConsoleSiteURL, capAt(urls, indexStateBatchSize))
	release()

	for _, s := range statuses {
		if s.Err == nil {
			result[s.PageURL] = s
		}
	}

	// Any URL the batch didn't cover (beyond indexStateBatchSize, or
	// dropped due to a partial batch failure) falls back to sequential,
	// still rate-limited, inspection.
	for _, u := range urls {
		if _, ok := result[u]; ok {
			continue
		}
		if err := limiter.Do(ctx, func() error {
			status := c.searchConsole.InspectURL(ctx, domain.SearchConsoleSiteURL, u)
			if status.Err != nil {
				return status.Err
			}
			result[u] = status
			return nil
		}); err != nil {
			slog.Warn("sequential index-state fallback failed", "url", u, "error", err)
		}
	}
	return result
}

func capAt(urls []string, max int) []string {
	if len(urls) <= max {
		return urls
	}
	return urls[:max]
}

// collectPage runs phase 2 for one page: Lighthouse fetch with retry,
// snapshot transform, and the three-write sequence (Lighthouse, then
// index-state, then search-analytics) inside one transaction.
func (c *Collector) collectPage(ctx context.Context, domain *models.Domain, page models.Page, indexState searchconsole.IndexStatus) error {
	mobileLimiter := c.limiters.Limiter(ratelimiter.KindLighthouse)
	release, err := mobileLimiter.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring lighthouse rate limit: %w", err)
	}

	var mobileResult *lighthouse.Result
	var desktopResult *lighthouse.Result
	var mobileErr, desktopErr error

	desktopDone := make(chan struct{})
	go func() {
		defer close(desktopDone)
		desktopLimiter := c.limiters.Limiter(ratelimiter.KindLighthouse)
		rel, err := desktopLimiter.Acquire(ctx)
		if err != nil {
			desktopErr = err
			return
		}
		defer rel()
		desktopResult, desktopErr = c.lighthouse.Fetch(ctx, page.URL, lighthouse.StrategyDesktop)
	}()

	mobileResult, mobileErr = c.lighthouse.Fetch(ctx, page.URL, lighthouse.StrategyMobile)
	release()
	<-desktopDone

	if mobileErr != nil {
		return fmt.Errorf("lighthouse mobile fetch: %w", mobileErr)
	}
	if desktopErr != nil {
		slog.Debug("lighthouse desktop fetch failed, primary scores remain mobile-only", "page_id", page.ID, "error", desktopErr)
	}

	snapshot := buildSnapshot(page.ID, mobileResult, desktopResult)

	if err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(snapshot).Error; err != nil {
			return fmt.Errorf("persisting snapshot: %w", err)
		}

		if indexState.PageURL != "" {
			isIndexed := indexState.IsIndexed
			verdict := models.IndexVerdict(indexState.Verdict)
			if err := tx.Model(snapshot).Updates(map[string]any{
				"is_indexed":     &isIndexed,
				"index_verdict":  verdict,
				"coverage_state": indexState.CoverageState,
			}).Error; err != nil {
				return fmt.Errorf("persisting index state: %w", err)
			}
		}

		if c.searchConsole != nil && domain.SearchConsoleSiteURL != "" {
			analytics, err := c.searchConsole.GetPageAnalytics(ctx, domain.SearchConsoleSiteURL, page.URL)
			if err != nil {
				slog.Info("search analytics fetch failed, non-fatal", "page_id", page.ID, "error", err)
				return nil
			}
			queries := make([]models.TopQuery, 0, len(analytics.TopQueries))
			for _, q := range analytics.TopQueries {
				key := ""
				if len(q.Keys) > 0 {
					key = q.Keys[0]
				}
				queries = append(queries, models.TopQuery{
					Query:       key,
					Impressions: int(q.Impressions),
					Clicks:      int(q.Clicks),
					CTR:         q.CTR,
					Position:    q.Position,
				})
			}
			clicks, impressions, avgPos, ctr := analytics.Clicks, analytics.Impressions, analytics.AvgPosition, analytics.CTR
			if err := tx.Model(snapshot).Updates(map[string]any{
				"gsc_impressions":  &impressions,
				"gsc_clicks":       &clicks,
				"gsc_ctr":          &ctr,
				"gsc_avg_position": &avgPos,
				"gsc_top_queries":  datatypes.JSONSlice[models.TopQuery](queries),
			}).Error; err != nil {
				return fmt.Errorf("persisting search analytics: %w", err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return touchLastAnalyzed(ctx, c.db, page.ID)
}

func touchLastAnalyzed(ctx context.Context, db *gorm.DB, pageID uint) error {
	now := time.Now()
	return db.WithContext(ctx).Model(&models.Page{}).Where("id = ?", pageID).
		Update("last_analyzed_at", &now).Error
}

// RefreshSearchConsoleOnly implements the lightweight mode from spec.md
// §4.4: skips Lighthouse entirely and updates only the index-state and
// search-analytics fields on each page's existing latest snapshot.
// Pages with no snapshot yet are skipped (nothing to back-fill onto).
func (c *Collector) RefreshSearchConsoleOnly(ctx context.Context, domain *models.Domain, pages []models.Page) (int, error) {
	if c.searchConsole == nil || domain.SearchConsoleSiteURL == "" || len(pages) == 0 {
		return 0, nil
	}

	indexState := c.fetchIndexStateBatch(ctx, domain, pages)

	results := workerpool.Run(pages, c.workerCount, func(page models.Page) pageResult {
		err := c.refreshPageSearchConsoleOnly(ctx, domain, page, indexState[page.URL])
		return pageResult{pageID: page.ID, err: err}
	})

	successCount := 0
	for _, r := range results {
		if r.err == nil {
			successCount++
		} else {
			slog.Warn("gsc-only page refresh failed", "page_id", r.pageID, "domain_id", domain.ID, "error", r.err)
		}
	}
	return successCount, nil
}

func (c *Collector) refreshPageSearchConsoleOnly(ctx context.Context, domain *models.Domain, page models.Page, indexState searchconsole.IndexStatus) error {
	var snapshot models.SEOMetricsSnapshot
	err := c.db.WithContext(ctx).Where("page_id = ?", page.ID).Order("timestamp DESC").First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading latest snapshot: %w", err)
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if indexState.PageURL != "" {
			isIndexed := indexState.IsIndexed
			verdict := models.IndexVerdict(indexState.Verdict)
			if err := tx.Model(&snapshot).Updates(map[string]any{
				"is_indexed":     &isIndexed,
				"index_verdict":  verdict,
				"coverage_state": indexState.CoverageState,
			}).Error; err != nil {
				return fmt.Errorf("persisting index state: %w", err)
			}
		}

		analytics, err := c.searchConsole.GetPageAnalytics(ctx, domain.SearchConsoleSiteURL, page.URL)
		if err != nil {
			slog.Info("search analytics fetch failed, non-fatal", "page_id", page.ID, "error", err)
			return nil
		}
		queries := make([]models.TopQuery, 0, len(analytics.TopQueries))
		for _, q := range analytics.TopQueries {
			key := ""
			if len(q.Keys) > 0 {
				key = q.Keys[0]
			}
			queries = append(queries, models.TopQuery{
				Query:       key,
				Impressions: int(q.Impressions),
				Clicks:      int(q.Clicks),
				CTR:         q.CTR,
				Position:    q.Position,
			})
		}
		clicks, impressions, avgPos, ctr := analytics.Clicks, analytics.Impressions, analytics.AvgPosition, analytics.CTR
		return tx.Model(&snapshot).Updates(map[string]any{
			"gsc_impressions":  &impressions,
			"gsc_clicks":       &clicks,
			"gsc_ctr":          &ctr,
			"gsc_avg_position": &avgPos,
			"gsc_top_queries":  datatypes.JSONSlice[models.TopQuery](queries),
		}).Error
	})
}

// buildSnapshot transforms a Lighthouse result (and optional desktop
// counterpart) into a SEOMetricsSnapshot. Mobile scores are primary;
// desktop is fetched for parallel comparison but not persisted
// separately (spec.md §4.3.2.b: "primary scores are the mobile ones").
func buildSnapshot(pageID uint, mobile, desktop *lighthouse.Result) *models.SEOMetricsSnapshot {
	snap := &models.SEOMetricsSnapshot{
		PageID:    pageID,
		Timestamp: time.Now(),
	}
	if mobile != nil {
		snap.ScoreSEO = mobile.ScoreSEO
		snap.ScorePerformance = mobile.ScorePerformance
		snap.ScoreAccessibility = mobile.ScoreAccessibility
		snap.ScoreBestPractices = mobile.ScoreBestPractices
		snap.ScorePWA = mobile.ScorePWA
		snap.CoreWebVitals = models.CoreWebVitals{
			LCP: mobile.LCP,
			FID: mobile.FID,
			CLS: mobile.CLS,
			FCP: mobile.FCP,
			TTI: mobile.TTI,
			TBT: mobile.TBT,
		}
	}
	_ = desktop // reserved for a future desktop-specific column; not persisted today
	return snap
}
