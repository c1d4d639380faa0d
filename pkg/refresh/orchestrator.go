// Package refresh implements the full-refresh state machine (spec.md
// §4.4): discover, persist, rebuild the page hierarchy, collect metrics,
// and aggregate domain-level scores, reporting progress at each stage
// boundary. Grounded on the teacher's cooperative-cancellation
// convention from pkg/queue/worker.go — context is checked between
// stages, never inside an individual outbound call — generalized from a
// single long poll loop to a fixed sequence of named stages.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/collector"
	"github.com/seocore/seocore/pkg/discovery"
	"github.com/seocore/seocore/pkg/models"
)

// Stage names the state machine's literal stages (spec.md §4.4).
type Stage string

const (
	StageDiscovering Stage = "discovering"
	StagePersisting  Stage = "persisting"
	StageHierarchy   Stage = "hierarchy"
	StageCollecting  Stage = "collecting"
	StageAggregating Stage = "aggregating"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Progress is reported via ProgressFunc at every major milestone.
type Progress struct {
	Stage   Stage
	Percent int
	Message string
}

// ProgressFunc receives one Progress update per milestone.
type ProgressFunc func(Progress)

// Orchestrator drives the refresh state machine for one domain at a time.
type Orchestrator struct {
	db         *gorm.DB
	discoverer *discovery.Discoverer
	collector  *collector.Collector
	maxPages   int
}

// New builds an Orchestrator.
func New(db *gorm.DB, disc *discovery.Discoverer, coll *collector.Collector, maxPages int) *Orchestrator {
	if maxPages <= 0 {
		maxPages = 500
	}
	return &Orchestrator{db: db, discoverer: disc, collector: coll, maxPages: maxPages}
}

func noopProgress(Progress) {}

// Run executes the full discovering→persisting→hierarchy→collecting→
// aggregating→done|failed pipeline for domainID.
func (o *Orchestrator) Run(ctx context.Context, domainID uint, progress ProgressFunc) error {
	if progress == nil {
		progress = noopProgress
	}

	var domain models.Domain
	if err := o.db.WithContext(ctx).First(&domain, domainID).Error; err != nil {
		return fmt.Errorf("refresh: loading domain %d: %w", domainID, err)
	}

	if err := ctx.Err(); err != nil {
		return o.fail(progress, err)
	}
	progress(Progress{Stage: StageDiscovering, Percent: 0, Message: "discovering pages"})
	result, err := o.discoverer.DiscoverFromDomain(ctx, domain.Hostname, domain.Scheme, o.maxPages)
	if err != nil {
		return o.fail(progress, fmt.Errorf("discovery: %w", err))
	}
	progress(Progress{Stage: StageDiscovering, Percent: 10, Message: fmt.Sprintf("discovered %d urls via %s", result.TotalURLs, result.UsedSource)})

	if err := ctx.Err(); err != nil {
		return o.fail(progress, err)
	}
	progress(Progress{Stage: StagePersisting, Percent: 10, Message: "persisting discovered pages"})
	pageIDs, err := o.persist(ctx, &domain, result.Pages)
	if err != nil {
		return o.fail(progress, fmt.Errorf("persisting pages: %w", err))
	}
	progress(Progress{Stage: StagePersisting, Percent: 60, Message: fmt.Sprintf("persisted %d pages", len(pageIDs))})

	if err := ctx.Err(); err != nil {
		return o.fail(progress, err)
	}
	progress(Progress{Stage: StageHierarchy, Percent: 60, Message: "rebuilding page hierarchy"})
	if err := o.RebuildHierarchy(ctx, domain.ID); err != nil {
		return o.fail(progress, fmt.Errorf("hierarchy: %w", err))
	}
	progress(Progress{Stage: StageHierarchy, Percent: 70, Message: "hierarchy rebuilt"})

	if err := ctx.Err(); err != nil {
		return o.fail(progress, err)
	}
	progress(Progress{Stage: StageCollecting, Percent: 70, Message: "collecting metrics"})
	var pages []models.Page
	if err := o.db.WithContext(ctx).Where("domain_id = ? AND is_active", domain.ID).Find(&pages).Error; err != nil {
		return o.fail(progress, fmt.Errorf("loading pages for collection: %w", err))
	}
	collected, err := o.collector.CollectBatch(ctx, &domain, pages)
	if err != nil {
		return o.fail(progress, fmt.Errorf("collecting: %w", err))
	}
	progress(Progress{Stage: StageCollecting, Percent: 90, Message: fmt.Sprintf("collected metrics for %d/%d pages", collected, len(pages))})

	if err := ctx.Err(); err != nil {
		return o.fail(progress, err)
	}
	progress(Progress{Stage: StageAggregating, Percent: 90, Message: "aggregating domain scores"})
	if err := o.aggregate(ctx, domain.ID, models.ScanKindFull); err != nil {
		return o.fail(progress, fmt.Errorf("aggregating: %w", err))
	}
	progress(Progress{Stage: StageDone, Percent: 100, Message: "refresh complete"})
	return nil
}

// RunGSCOnly runs the lightweight Search-Console-only refresh: skips
// Lighthouse entirely and only back-fills index-state + analytics on
// the latest existing snapshot per page.
func (o *Orchestrator) RunGSCOnly(ctx context.Context, domainID uint, progress ProgressFunc) error {
	if progress == nil {
		progress = noopProgress
	}

	var domain models.Domain
	if err := o.db.WithContext(ctx).First(&domain, domainID).Error; err != nil {
		return fmt.Errorf("refresh: loading domain %d: %w", domainID, err)
	}
	if domain.SearchConsoleSiteURL == "" {
		progress(Progress{Stage: StageDone, Percent: 100, Message: "no search console site configured, nothing to do"})
		return nil
	}

	progress(Progress{Stage: StageCollecting, Percent: 0, Message: "refreshing search console data"})

	var pages []models.Page
	if err := o.db.WithContext(ctx).Where("domain_id = ? AND is_active", domain.ID).Find(&pages).Error; err != nil {
		return o.fail(progress, fmt.Errorf("loading pages: %w", err))
	}

	updated, err := o.collector.RefreshSearchConsoleOnly(ctx, &domain, pages)
	if err != nil {
		return o.fail(progress, fmt.Errorf("gsc refresh: %w", err))
	}
	progress(Progress{Stage: StageCollecting, Percent: 90, Message: fmt.Sprintf("refreshed %d/%d pages", updated, len(pages))})

	if err := ctx.Err(); err != nil {
		return o.fail(progress, err)
	}
	if err := o.aggregate(ctx, domain.ID, models.ScanKindGSC); err != nil {
		return o.fail(progress, fmt.Errorf("aggregating: %w", err))
	}
	progress(Progress{Stage: StageDone, Percent: 100, Message: "gsc-only refresh complete"})
	return nil
}

func (o *Orchestrator) fail(progress ProgressFunc, err error) error {
	progress(Progress{Stage: StageFailed, Message: err.Error()})
	slog.Error("refresh failed", "error", err)
	return err
}

// persist upserts each discovered page, preserving manual edits: a page
// marked ManuallyEdited keeps its existing ParentID/DepthLevel/
// UseManualPosition; every other field always updates.
func (o *Orchestrator) persist(ctx context.Context, domain *models.Domain, drafts []discovery.PageDraft) ([]uint, error) {
	ids := make([]uint, 0, len(drafts))

	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, draft := range drafts {
			var existing models.Page
			err := tx.Where("domain_id = ? AND url = ?", domain.ID, draft.URL).First(&existing).Error

			switch {
			case err == nil:
				updates := map[string]any{
					"path":         draft.Path,
					"is_subdomain": draft.IsSubdomain,
					"subdomain":    draft.Subdomain,
					"is_active":    true,
				}
				if !existing.ManuallyEdited {
					updates["depth_level"] = draft.DepthLevel
				}
				if err := tx.Model(&existing).Updates(updates).Error; err != nil {
					return fmt.Errorf("updating page %s: %w", draft.URL, err)
				}
				ids = append(ids, existing.ID)

			case errors.Is(err, gorm.ErrRecordNotFound):
				page := models.Page{
					DomainID:    domain.ID,
					URL:         draft.URL,
					Path:        draft.Path,
					DepthLevel:  draft.DepthLevel,
					IsSubdomain: draft.IsSubdomain,
					Subdomain:   draft.Subdomain,
					IsActive:    true,
				}
				if err := tx.Create(&page).Error; err != nil {
					return fmt.Errorf("creating page %s: %w", draft.URL, err)
				}
				ids = append(ids, page.ID)

			default:
				return fmt.Errorf("looking up page %s: %w", draft.URL, err)
			}
		}
		return nil
	})
	return ids, err
}

// RebuildHierarchy finds the root (shortest path), then for every
// non-manually-edited, non-root page picks the parent whose path is the
// longest proper prefix, falling back to the root for pages with no
// matching prefix, and recomputes depth from the chosen parent. Exported
// for cmd/seocorectl's recalculate-depth operator command, used to repair
// a domain's hierarchy without running a full refresh.
func (o *Orchestrator) RebuildHierarchy(ctx context.Context, domainID uint) error {
	var pages []models.Page
	if err := o.db.WithContext(ctx).Where("domain_id = ? AND is_active", domainID).Find(&pages).Error; err != nil {
		return fmt.Errorf("loading pages: %w", err)
	}
	if len(pages) == 0 {
		return nil
	}

	sort.Slice(pages, func(i, j int) bool { return len(pages[i].Path) < len(pages[j].Path) })
	root := pages[0]

	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, page := range pages {
			if page.ID == root.ID || page.ManuallyEdited {
				continue
			}

			parent := longestPrefixParent(page, pages, root)
			depth := parent.DepthLevel + 1
			if parent.ID == page.ID {
				depth = 0
			}

			if err := tx.Model(&models.Page{}).Where("id = ?", page.ID).Updates(map[string]any{
				"parent_id":   parent.ID,
				"depth_level": depth,
			}).Error; err != nil {
				return fmt.Errorf("updating hierarchy for page %d: %w", page.ID, err)
			}
		}
		return nil
	})
}

func longestPrefixParent(page models.Page, candidates []models.Page, root models.Page) models.Page {
	best := root
	bestLen := -1
	for _, candidate := range candidates {
		if candidate.ID == page.ID {
			continue
		}
		if candidate.Path == page.Path {
			continue
		}
		if !strings.HasPrefix(page.Path, candidate.Path) {
			continue
		}
		if len(candidate.Path) > bestLen {
			best = candidate
			bestLen = len(candidate.Path)
		}
	}
	return best
}

// aggregate recomputes the domain's cached average scores from the
// latest snapshot per page, using a correlated subquery (not a per-page
// loop) to select each page's most recent snapshot.
func (o *Orchestrator) aggregate(ctx context.Context, domainID uint, kind models.ScanKind) error {
	type aggregateRow struct {
		AvgSEO  float64
		AvgPerf float64
		AvgA11y float64
	}

	latestSnapshotSubquery := o.db.
		Table("seo_metrics_snapshots s1").
		Select("s1.page_id, MAX(s1.timestamp) AS max_ts").
		Group("s1.page_id")

	var row aggregateRow
	err := o.db.WithContext(ctx).
		Table("seo_metrics_snapshots snap").
		Joins("JOIN (?) latest ON latest.page_id = snap.page_id AND latest.max_ts = snap.timestamp", latestSnapshotSubquery).
		Joins("JOIN pages p ON p.id = snap.page_id").
		Where("p.domain_id = ?", domainID).
		Select("AVG(snap.score_seo) AS avg_seo, AVG(snap.score_performance) AS avg_perf, AVG(snap.score_accessibility) AS avg_a11y").
		Scan(&row).Error
	if err != nil {
		return fmt.Errorf("computing domain aggregates: %w", err)
	}

	now := time.Now()
	updates := map[string]any{
		"seo_score":            row.AvgSEO,
		"performance_score":    row.AvgPerf,
		"accessibility_score":  row.AvgA11y,
	}
	if kind == models.ScanKindGSC {
		updates["last_gsc_scan_at"] = &now
	} else {
		updates["last_full_scan_at"] = &now
	}

	return o.db.WithContext(ctx).Model(&models.Domain{}).Where("id = ?", domainID).Updates(updates).Error
}
