// Package effectiveness implements C11 (spec.md §4.11): the
// pending->applied->tracking->tracked state machine that measures
// whether an applied AI suggestion actually improved a page's Search
// Console performance.
package effectiveness

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seocore/seocore/pkg/llmclient"
	"github.com/seocore/seocore/pkg/models"
	"github.com/seocore/seocore/pkg/searchconsole"
	"github.com/seocore/seocore/pkg/vectorstore"
)

const classifySystemPrompt = `You classify the effect of an applied SEO change on a page's Search Console performance. ` +
	`Compare baseline metrics (before the change) against final metrics (after the tracking window). ` +
	`Respond as JSON: {"effect": "positive"|"neutral"|"negative", "factors": ["..."]}`

// Tracker drives the suggestion lifecycle in spec.md §4.11.
type Tracker struct {
	db            *gorm.DB
	searchConsole *searchconsole.Client
	llm           llmclient.Provider
	store         *vectorstore.Store
	embedder      vectorstore.Embedder
}

// New builds a Tracker. searchConsole is required for Baseline/Snapshot;
// llm and store/embedder are required only for Finalize's classification
// and re-embed step.
func New(db *gorm.DB, sc *searchconsole.Client, llm llmclient.Provider, store *vectorstore.Store, embedder vectorstore.Embedder) *Tracker {
	return &Tracker{db: db, searchConsole: sc, llm: llm, store: store, embedder: embedder}
}

type metricsSnapshot struct {
	Impressions int     `json:"impressions"`
	Clicks      int     `json:"clicks"`
	CTR         float64 `json:"ctr"`
	Position    float64 `json:"position"`
}

// Baseline captures the starting GSC metrics for sug's page and moves it
// from applied to tracking, per spec.md §4.11's "on apply, snapshot
// baseline GSC metrics" step. aifixer.ApplySuggestion deliberately leaves
// this transition to Tracker since it has no Search Console site URL
// context of its own for domain-scoped suggestions.
func (t *Tracker) Baseline(ctx context.Context, suggestionID uint) error {
	var sug models.AISuggestion
	if err := t.db.WithContext(ctx).First(&sug, suggestionID).Error; err != nil {
		return fmt.Errorf("effectiveness: loading suggestion %d: %w", suggestionID, err)
	}
	if sug.Status != models.SuggestionApplied {
		return fmt.Errorf("effectiveness: suggestion %d is %s, not applied", suggestionID, sug.Status)
	}

	metrics, err := t.pageMetrics(ctx, &sug)
	if err != nil {
		return err
	}
	payload, err := marshalMetrics(metrics)
	if err != nil {
		return err
	}

	now := time.Now()
	trackingEnd := now.AddDate(0, 0, sug.TrackingDays)
	return t.db.WithContext(ctx).Model(&sug).Updates(map[string]any{
		"status":            models.SuggestionTracking,
		"baseline_metrics":  payload,
		"tracking_start_at": &now,
		"tracking_end_at":   &trackingEnd,
	}).Error
}

// DailySnapshot records one SuggestionDailySnapshot row for every
// tracking-status suggestion, idempotent per (suggestion, date) via the
// model's unique index, per spec.md §4.11's "snapshot per day" step.
func (t *Tracker) DailySnapshot(ctx context.Context) (int, error) {
	var suggestions []models.AISuggestion
	if err := t.db.WithContext(ctx).Where("status = ?", models.SuggestionTracking).Find(&suggestions).Error; err != nil {
		return 0, fmt.Errorf("effectiveness: loading tracking suggestions: %w", err)
	}

	today := time.Now().Truncate(24 * time.Hour)
	written := 0
	for i := range suggestions {
		sug := &suggestions[i]
		metrics, err := t.pageMetrics(ctx, sug)
		if err != nil {
			continue
		}
		snapshot := models.SuggestionDailySnapshot{
			SuggestionID: sug.ID,
			Date:         today,
			Impressions:  metrics.Impressions,
			Clicks:       metrics.Clicks,
			CTR:          metrics.CTR,
			AvgPosition:  metrics.Position,
		}
		err = t.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&snapshot).Error
		if err != nil {
			continue
		}
		written++
	}
	return written, nil
}

// DueForFinalize returns suggestion IDs whose tracking window has elapsed.
func (t *Tracker) DueForFinalize(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := t.db.WithContext(ctx).Model(&models.AISuggestion{}).
		Where("status = ? AND tracking_end_at <= ?", models.SuggestionTracking, time.Now()).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("effectiveness: finding due suggestions: %w", err)
	}
	return ids, nil
}

// Finalize ends tracking for suggestionID (whether the window elapsed or
// the caller forces an early finalize), classifying the effect via LLM,
// writing the score, updating the originating AIFixHistory row, and
// re-embedding suggestion_tracking so future §4.8 analyses learn from it
// (spec.md §4.11's finalisation step).
func (t *Tracker) Finalize(ctx context.Context, suggestionID uint) (*models.AISuggestion, error) {
	var sug models.AISuggestion
	if err := t.db.WithContext(ctx).First(&sug, suggestionID).Error; err != nil {
		return nil, fmt.Errorf("effectiveness: loading suggestion %d: %w", suggestionID, err)
	}
	if sug.Status != models.SuggestionTracking {
		return nil, fmt.Errorf("effectiveness: suggestion %d is %s, not tracking", suggestionID, sug.Status)
	}

	final, err := t.pageMetrics(ctx, &sug)
	if err != nil {
		return nil, err
	}
	finalPayload, err := marshalMetrics(final)
	if err != nil {
		return nil, err
	}

	effect, factors, score := t.classify(ctx, sug.BaselineMetrics, finalPayload)

	err = t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		impact, merr := json.Marshal(map[string]any{"effect": effect, "factors": factors})
		if merr != nil {
			return merr
		}
		var impactMap datatypes.JSONMap
		if uerr := json.Unmarshal(impact, &impactMap); uerr != nil {
			return uerr
		}

		if uerr := tx.Model(&sug).Updates(map[string]any{
			"status":              models.SuggestionTracked,
			"final_metrics":       finalPayload,
			"impact_analysis":     impactMap,
			"effectiveness_score": score,
		}).Error; uerr != nil {
			return uerr
		}

		if sug.PageID != nil {
			if uerr := tx.Model(&models.AIFixHistory{}).
				Where("page_id = ? AND status IN ?", *sug.PageID, []models.FixStatus{models.FixStatusDeployed, models.FixStatusVerified}).
				Update("effectiveness", effectivenessFromEffect(effect)).Error; uerr != nil {
				return uerr
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("effectiveness: finalizing suggestion %d: %w", suggestionID, err)
	}

	if t.store != nil && t.embedder != nil {
		var domain models.Domain
		if derr := t.db.WithContext(ctx).First(&domain, sug.DomainID).Error; derr == nil {
			t.store.SyncDomain(ctx, t.db, t.embedder, &domain)
		}
	}

	t.db.WithContext(ctx).First(&sug, suggestionID)
	return &sug, nil
}

func (t *Tracker) pageMetrics(ctx context.Context, sug *models.AISuggestion) (*metricsSnapshot, error) {
	var domain models.Domain
	if err := t.db.WithContext(ctx).First(&domain, sug.DomainID).Error; err != nil {
		return nil, fmt.Errorf("effectiveness: loading domain %d: %w", sug.DomainID, err)
	}
	if domain.SearchConsoleSiteURL == "" || sug.PageID == nil {
		return &metricsSnapshot{}, nil
	}
	var page models.Page
	if err := t.db.WithContext(ctx).First(&page, *sug.PageID).Error; err != nil {
		return nil, fmt.Errorf("effectiveness: loading page %d: %w", *sug.PageID, err)
	}

	analytics, err := t.searchConsole.GetPageAnalytics(ctx, domain.SearchConsoleSiteURL, page.URL)
	if err != nil {
		return nil, fmt.Errorf("effectiveness: fetching page analytics: %w", err)
	}
	return &metricsSnapshot{
		Impressions: analytics.Impressions,
		Clicks:      analytics.Clicks,
		CTR:         analytics.CTR,
		Position:    analytics.AvgPosition,
	}, nil
}

// classify asks the LLM to compare baseline and final metrics, falling
// back to a deterministic comparison (clicks delta sign) if the LLM is
// unavailable or returns malformed JSON — the same fallback discipline
// pkg/aianalysis uses for its full-analysis call.
func (t *Tracker) classify(ctx context.Context, baseline, final datatypes.JSONMap) (effect string, factors []string, score float64) {
	if t.llm != nil {
		baselineJSON, _ := json.Marshal(baseline)
		finalJSON, _ := json.Marshal(final)
		userPrompt := fmt.Sprintf("Baseline metrics: %s\nFinal metrics: %s", baselineJSON, finalJSON)
		raw, err := t.llm.GenerateJSON(ctx, classifySystemPrompt, userPrompt)
		if err == nil {
			var parsed struct {
				Effect  string   `json:"effect"`
				Factors []string `json:"factors"`
			}
			if json.Unmarshal([]byte(raw), &parsed) == nil && parsed.Effect != "" {
				return parsed.Effect, parsed.Factors, scoreFromEffect(parsed.Effect)
			}
		}
	}

	baselineClicks, _ := baseline["clicks"].(float64)
	finalClicks, _ := final["clicks"].(float64)
	switch {
	case finalClicks > baselineClicks:
		return "positive", []string{"clicks increased"}, scoreFromEffect("positive")
	case finalClicks < baselineClicks:
		return "negative", []string{"clicks decreased"}, scoreFromEffect("negative")
	default:
		return "neutral", []string{"clicks unchanged"}, scoreFromEffect("neutral")
	}
}

func scoreFromEffect(effect string) float64 {
	switch effect {
	case "positive":
		return 1
	case "negative":
		return -1
	default:
		return 0
	}
}

func effectivenessFromEffect(effect string) models.Effectiveness {
	switch effect {
	case "positive":
		return models.EffectivenessEffective
	case "negative":
		return models.EffectivenessNegative
	default:
		return models.EffectivenessPartial
	}
}

func marshalMetrics(m *metricsSnapshot) (datatypes.JSONMap, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("effectiveness: marshaling metrics: %w", err)
	}
	var out datatypes.JSONMap
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("effectiveness: unmarshaling metrics: %w", err)
	}
	return out, nil
}
