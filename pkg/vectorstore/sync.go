package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/models"
)

// Embedder turns rendered text into a vector. pkg/llmclient's provider
// wrapper implements this so vectorstore never imports an LLM SDK
// directly — SyncDomain only needs the embedding, not the provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SyncResult reports per-collection upsert counts and any row-level
// failures encountered while syncing a domain, so a partial failure
// never aborts the whole sync (spec.md §4.6: errors are per-row).
type SyncResult struct {
	Counts map[Collection]int
	Errors []error
}

func (r *SyncResult) record(c Collection, err error) {
	if err != nil {
		r.Errors = append(r.Errors, fmt.Errorf("%s: %w", c, err))
		return
	}
	if r.Counts == nil {
		r.Counts = make(map[Collection]int)
	}
	r.Counts[c]++
}

// SyncDomain re-embeds every source row belonging to domainID across
// all seven collections, using a deterministic id per row
// (collection-prefixed primary key) so re-running the sync is an
// idempotent upsert rather than an ever-growing duplicate set.
func (s *Store) SyncDomain(ctx context.Context, db *gorm.DB, embedder Embedder, domain *models.Domain) *SyncResult {
	result := &SyncResult{Counts: make(map[Collection]int)}

	s.syncDomainKnowledge(ctx, embedder, domain, result)
	s.syncPageContext(ctx, db, embedder, domain.ID, result)
	s.syncFixHistory(ctx, db, embedder, domain.ID, result)
	s.syncAnalysisCache(ctx, db, embedder, domain.ID, result)
	s.syncSiteStructure(ctx, db, embedder, domain.ID, result)
	s.syncSitemapEntries(ctx, db, embedder, domain.ID, result)
	s.syncSuggestionTracking(ctx, db, embedder, domain.ID, result)

	return result
}

func (s *Store) embedAndUpsert(ctx context.Context, embedder Embedder, collection Collection, id string, domainID uint, text string, metadata map[string]any, result *SyncResult) {
	vec, err := embedder.Embed(ctx, text)
	if err != nil {
		result.record(collection, fmt.Errorf("embedding %s: %w", id, err))
		return
	}
	err = s.Upsert(collection, Document{
		ID:        id,
		DomainID:  domainID,
		Document:  text,
		Metadata:  metadata,
		Embedding: vec,
	})
	result.record(collection, err)
}

func (s *Store) syncDomainKnowledge(ctx context.Context, embedder Embedder, domain *models.Domain, result *SyncResult) {
	text := fmt.Sprintf("Domain %s (scheme %s). SEO score %.1f, performance %.1f, accessibility %.1f.",
		domain.Hostname, domain.Scheme, domain.SEOScore, domain.PerformanceScore, domain.AccessibilityScore)
	s.embedAndUpsert(ctx, embedder, CollectionDomainKnowledge, domainKnowledgeID(domain.ID), domain.ID, text, map[string]any{
		"hostname": domain.Hostname,
	}, result)
}

func (s *Store) syncPageContext(ctx context.Context, db *gorm.DB, embedder Embedder, domainID uint, result *SyncResult) {
	var pages []models.Page
	if err := db.Where("domain_id = ?", domainID).Find(&pages).Error; err != nil {
		result.record(CollectionPageContext, err)
		return
	}
	for _, page := range pages {
		text := fmt.Sprintf("Page %s. Title: %q. Description: %q.", page.URL, page.Title, page.Description)
		s.embedAndUpsert(ctx, embedder, CollectionPageContext, pageContextID(page.ID), domainID, text, map[string]any{
			"url":  page.URL,
			"path": page.Path,
		}, result)
	}
}

func (s *Store) syncFixHistory(ctx context.Context, db *gorm.DB, embedder Embedder, domainID uint, result *SyncResult) {
	var fixes []models.AIFixHistory
	if err := db.Joins("JOIN pages ON pages.id = ai_fix_histories.page_id").
		Where("pages.domain_id = ?", domainID).Find(&fixes).Error; err != nil {
		result.record(CollectionFixHistory, err)
		return
	}
	for _, fix := range fixes {
		text := fmt.Sprintf("Fix for %s on page %d: %q -> %q. %s", fix.IssueType, fix.PageID, fix.OriginalValue, fix.FixedValue, fix.LLMExplanation)
		s.embedAndUpsert(ctx, embedder, CollectionFixHistory, fixHistoryID(fix.ID), domainID, text, map[string]any{
			"issue_type":    string(fix.IssueType),
			"effectiveness": string(fix.Effectiveness),
			"page_id":       fix.PageID,
		}, result)
	}
}

func (s *Store) syncAnalysisCache(ctx context.Context, db *gorm.DB, embedder Embedder, domainID uint, result *SyncResult) {
	var entries []models.AIAnalysisCache
	if err := db.Where("domain_id = ?", domainID).Find(&entries).Error; err != nil {
		result.record(CollectionAnalysisCache, err)
		return
	}
	for _, entry := range entries {
		text := fmt.Sprintf("Cached %s analysis for domain %d (context %s).", entry.AnalysisType, entry.DomainID, entry.ContextHash)
		s.embedAndUpsert(ctx, embedder, CollectionAnalysisCache, analysisCacheID(entry.ID), domainID, text, map[string]any{
			"analysis_type": entry.AnalysisType,
		}, result)
	}
}

func (s *Store) syncSiteStructure(ctx context.Context, db *gorm.DB, embedder Embedder, domainID uint, result *SyncResult) {
	var pages []models.Page
	if err := db.Where("domain_id = ?", domainID).Order("depth_level ASC").Find(&pages).Error; err != nil {
		result.record(CollectionSiteStructure, err)
		return
	}
	text := "Site structure:\n"
	for _, page := range pages {
		text += fmt.Sprintf("- [depth %d] %s\n", page.DepthLevel, page.Path)
	}
	s.embedAndUpsert(ctx, embedder, CollectionSiteStructure, siteStructureID(domainID), domainID, text, map[string]any{
		"page_count": len(pages),
	}, result)
}

func (s *Store) syncSitemapEntries(ctx context.Context, db *gorm.DB, embedder Embedder, domainID uint, result *SyncResult) {
	var entries []models.SitemapEntry
	if err := db.Where("domain_id = ?", domainID).Find(&entries).Error; err != nil {
		result.record(CollectionSitemapEntries, err)
		return
	}
	for _, entry := range entries {
		text := fmt.Sprintf("Sitemap entry %s, changefreq %s, priority %.2f.", entry.Loc, entry.ChangeFreq, entry.Priority)
		s.embedAndUpsert(ctx, embedder, CollectionSitemapEntries, sitemapEntryID(entry.ID), domainID, text, map[string]any{
			"loc": entry.Loc,
		}, result)
	}
}

func (s *Store) syncSuggestionTracking(ctx context.Context, db *gorm.DB, embedder Embedder, domainID uint, result *SyncResult) {
	var suggestions []models.AISuggestion
	if err := db.Where("domain_id = ?", domainID).Find(&suggestions).Error; err != nil {
		result.record(CollectionSuggestionTracking, err)
		return
	}
	for _, sug := range suggestions {
		text := fmt.Sprintf("Suggestion %s (%s): %s. Expected impact: %s. Status: %s.",
			sug.Type, priorityLabel(sug.Priority), sug.Title, sug.ExpectedImpact, sug.Status)
		s.embedAndUpsert(ctx, embedder, CollectionSuggestionTracking, suggestionTrackingID(sug.ID), domainID, text, map[string]any{
			"type":   string(sug.Type),
			"status": string(sug.Status),
		}, result)
	}
}

func priorityLabel(p models.SuggestionPriority) string {
	switch p {
	case models.PriorityHigh:
		return "high priority"
	case models.PriorityMedium:
		return "medium priority"
	default:
		return "low priority"
	}
}

// The id helpers below give every row a deterministic, collection-scoped
// id so re-syncing a domain upserts in place instead of accumulating
// duplicate vectors for the same underlying record.
func domainKnowledgeID(domainID uint) string  { return "domain_" + u(domainID) }
func pageContextID(pageID uint) string        { return "page_" + u(pageID) }
func fixHistoryID(fixID uint) string          { return "fix_" + u(fixID) }
func analysisCacheID(cacheID uint) string     { return "cache_" + u(cacheID) }
func siteStructureID(domainID uint) string    { return "structure_" + u(domainID) }
func sitemapEntryID(entryID uint) string      { return "sitemap_" + u(entryID) }
func suggestionTrackingID(sugID uint) string  { return "suggestion_" + u(sugID) }

func u(id uint) string { return strconv.FormatUint(uint64(id), 10) }
