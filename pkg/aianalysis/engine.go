package aianalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/aianalysis/prompts"
	"github.com/seocore/seocore/pkg/knowledge"
	"github.com/seocore/seocore/pkg/llmclient"
	"github.com/seocore/seocore/pkg/models"
	"github.com/seocore/seocore/pkg/vectorstore"
)

const (
	retrievalResultsPerCollection = 10
	learnedPatternLimit           = 10
	livePageURLLimit              = 50
	reproposalWindow              = 30 * 24 * time.Hour
	cacheTTL                      = 24 * time.Hour
)

// retrievalCollections are the five collections §4.8 step 2 says to
// query (suggestion_tracking and sitemap_entries are intentionally
// excluded — they describe output of a past analysis, not input).
var retrievalCollections = []vectorstore.Collection{
	vectorstore.CollectionDomainKnowledge,
	vectorstore.CollectionPageContext,
	vectorstore.CollectionFixHistory,
	vectorstore.CollectionAnalysisCache,
	vectorstore.CollectionSiteStructure,
}

// vagueSuggestionPattern matches the Korean source's telltale vague
// phrasing ("N개의 이슈", "N issues") when it appears without a more
// specific keyword alongside it.
var vagueSuggestionPattern = regexp.MustCompile(`\d+\s*개의\s*이슈|\b\d+\s+issues?\b`)

// Engine runs the full-domain AI analysis workflow.
type Engine struct {
	db      *gorm.DB
	builder *knowledge.Builder
	store   *vectorstore.Store
	llm     llmclient.Provider
}

// New builds an Engine.
func New(db *gorm.DB, builder *knowledge.Builder, store *vectorstore.Store, llm llmclient.Provider) *Engine {
	return &Engine{db: db, builder: builder, store: store, llm: llm}
}

// AnalyzeDomain runs the eight-step workflow from spec.md §4.8 for one
// domain and persists the resulting AISuggestion rows.
func (e *Engine) AnalyzeDomain(ctx context.Context, domainID uint, progress ProgressFunc) (*AnalysisResult, error) {
	report := func(step string, pct int) {
		if progress != nil {
			progress(step, pct)
		}
	}

	report("building_context", 10)
	domainCtx, domainText, err := e.builder.Build(domainID)
	if err != nil {
		return nil, fmt.Errorf("aianalysis: building context: %w", err)
	}

	report("retrieving_knowledge", 25)
	retrievalText, err := e.retrieveKnowledge(ctx, domainText, domainID)
	if err != nil {
		return nil, fmt.Errorf("aianalysis: retrieving knowledge: %w", err)
	}

	report("loading_learned_patterns", 35)
	learnedText, recentFixes, err := e.loadLearnedPatterns(domainID)
	if err != nil {
		return nil, fmt.Errorf("aianalysis: loading fix history: %w", err)
	}

	report("loading_pages", 40)
	pageURLs, urlToPageID, err := e.loadLivePages(domainID)
	if err != nil {
		return nil, fmt.Errorf("aianalysis: loading pages: %w", err)
	}

	report("calling_llm", 55)
	userPrompt := prompts.BuildFullAnalysisUserPrompt(domainText, retrievalText, learnedText, pageURLs)
	raw, err := e.llm.GenerateJSON(ctx, prompts.FullAnalysisSystemInstruction, userPrompt)

	var parsed llmResponse
	fallback := false
	if err != nil || json.Unmarshal([]byte(raw), &parsed) != nil {
		fallback = true
		parsed = fallbackResponse(domainCtx)
	}

	report("post_processing", 75)
	suggestions := e.postProcess(parsed, domainID, urlToPageID, recentFixes)

	report("persisting", 90)
	if err := e.db.Transaction(func(tx *gorm.DB) error {
		for i := range suggestions {
			if err := tx.Create(&suggestions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("aianalysis: persisting suggestions: %w", err)
	}

	if !fallback {
		e.cacheAnalysis(ctx, domainID, raw)
	}

	report("done", 100)
	return &AnalysisResult{Suggestions: suggestions, StrategySummary: parsed.StrategySummary, FallbackUsed: fallback}, nil
}

func (e *Engine) retrieveKnowledge(ctx context.Context, domainText string, domainID uint) (string, error) {
	queryVec, err := e.llm.Embed(ctx, domainText)
	if err != nil {
		return "", err
	}
	matches, err := e.store.Query(queryVec, domainID, retrievalCollections, retrievalResultsPerCollection)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, collection := range retrievalCollections {
		rows := matches[collection]
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "### %s\n\n", collection)
		for _, m := range rows {
			fmt.Fprintf(&sb, "- %s\n", m.Document)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (e *Engine) loadLearnedPatterns(domainID uint) (string, []models.AIFixHistory, error) {
	var fixes []models.AIFixHistory
	err := e.db.Joins("JOIN pages ON pages.id = ai_fix_histories.page_id").
		Where("pages.domain_id = ? AND ai_fix_histories.effectiveness = ?", domainID, models.EffectivenessEffective).
		Order("ai_fix_histories.applied_at DESC").
		Limit(learnedPatternLimit).
		Find(&fixes).Error
	if err != nil {
		return "", nil, err
	}

	var recent []models.AIFixHistory
	cutoff := time.Now().Add(-reproposalWindow)
	err = e.db.Joins("JOIN pages ON pages.id = ai_fix_histories.page_id").
		Where("pages.domain_id = ? AND ai_fix_histories.applied_at >= ? AND ai_fix_histories.effectiveness IN ?",
			domainID, cutoff, []models.Effectiveness{models.EffectivenessEffective, models.EffectivenessPartial, models.EffectivenessUnknown}).
		Find(&recent).Error
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	for _, fix := range fixes {
		fmt.Fprintf(&sb, "- %s: %q -> %q worked (%s)\n", fix.IssueType, fix.OriginalValue, fix.FixedValue, fix.LLMExplanation)
	}
	return sb.String(), recent, nil
}

func (e *Engine) loadLivePages(domainID uint) ([]string, map[string]uint, error) {
	var pages []models.Page
	if err := e.db.Where("domain_id = ? AND is_active = ?", domainID, true).
		Limit(livePageURLLimit).Find(&pages).Error; err != nil {
		return nil, nil, err
	}
	urls := make([]string, len(pages))
	byURL := make(map[string]uint, len(pages))
	for i, p := range pages {
		urls[i] = p.URL
		byURL[p.URL] = p.ID
	}
	return urls, byURL, nil
}

func fallbackResponse(ctx *knowledge.Context) llmResponse {
	return llmResponse{
		StrategySummary: fmt.Sprintf(
			"Automated analysis could not be completed for %s. Health score is %d/100 with %d open issues; "+
				"review flagged pages manually and retry analysis once the issue is resolved.",
			ctx.Domain.Hostname, ctx.Domain.HealthScore, ctx.Domain.OpenIssueCount),
	}
}

// postProcess implements spec.md §4.8 step 7: re-routing, vague-
// suggestion filtering, recency filtering against in-flight fixes,
// bulk quick-win rewriting, and auto-applicable marking.
func (e *Engine) postProcess(resp llmResponse, domainID uint, urlToPageID map[string]uint, recentFixes []models.AIFixHistory) []models.AISuggestion {
	recentByPageType := make(map[string]bool, len(recentFixes))
	for _, fix := range recentFixes {
		recentByPageType[recencyKey(fix.PageID, string(fix.IssueType))] = true
	}

	var suggestions []models.AISuggestion

	for _, p := range resp.TopPriorities {
		if isVague(p.Description) {
			continue
		}
		if pageID, isPageSpecific := urlToPageID[p.AffectedPage]; isPageSpecific {
			// Mis-routed page-specific suggestion: move it into page scope.
			suggestions = append(suggestions, models.AISuggestion{
				DomainID:       domainID,
				PageID:         &pageID,
				Type:           models.SuggestionPriorityAction,
				Priority:       clampPriority(p.Priority),
				Title:          p.Title,
				Description:    p.Description,
				ExpectedImpact: p.ExpectedImpact,
				Status:         models.SuggestionPending,
			})
			continue
		}
		suggestions = append(suggestions, models.AISuggestion{
			DomainID:       domainID,
			Type:           models.SuggestionPriorityAction,
			Priority:       clampPriority(p.Priority),
			Title:          p.Title,
			Description:    p.Description,
			ExpectedImpact: p.ExpectedImpact,
			Status:         models.SuggestionPending,
		})
	}

	bulkTitlePages, bulkDescPages := e.collectBulkCandidates(domainID)

	for _, q := range resp.QuickWins {
		if isVague(q.Description) {
			continue
		}
		if isBulkTitleCandidate(q) && len(bulkTitlePages) > 0 {
			suggestions = append(suggestions, bulkSuggestion(domainID, models.SuggestionBulkFixTitle, q, bulkTitlePages))
			continue
		}
		if isBulkDescCandidate(q) && len(bulkDescPages) > 0 {
			suggestions = append(suggestions, bulkSuggestion(domainID, models.SuggestionBulkFixDesc, q, bulkDescPages))
			continue
		}
		suggestions = append(suggestions, models.AISuggestion{
			DomainID:         domainID,
			Type:             models.SuggestionQuickWin,
			Priority:         models.PriorityHigh,
			Title:            q.Title,
			Description:      q.Description,
			ExpectedImpact:   q.ExpectedImpact,
			ActionData:       datatypes.JSONMap{"sub_type": q.SubType},
			IsAutoApplicable: isAutoApplicableQuickWin(q.SubType),
			Status:           models.SuggestionPending,
		})
	}

	for _, ps := range resp.PageSuggestions {
		if isVague(ps.Description) {
			continue
		}
		pageID, ok := urlToPageID[ps.PageURL]
		if !ok {
			continue
		}
		if recentByPageType[recencyKey(pageID, ps.Type)] {
			continue
		}
		actionData := datatypes.JSONMap(ps.ActionData)
		suggestions = append(suggestions, models.AISuggestion{
			DomainID:         domainID,
			PageID:           &pageID,
			Type:             models.SuggestionType(ps.Type),
			Priority:         clampPriority(ps.Priority),
			Title:            ps.Title,
			Description:      ps.Description,
			ActionData:       actionData,
			IsAutoApplicable: isAutoApplicablePayload(ps.Type, actionData),
			Status:           models.SuggestionPending,
		})
	}

	return suggestions
}

func recencyKey(pageID uint, issueType string) string {
	return fmt.Sprintf("%d:%s", pageID, issueType)
}

func isVague(description string) bool {
	if description == "" {
		return true
	}
	return vagueSuggestionPattern.MatchString(description)
}

func clampPriority(p int) models.SuggestionPriority {
	switch {
	case p <= int(models.PriorityHigh):
		return models.PriorityHigh
	case p >= int(models.PriorityLow):
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}

func isBulkTitleCandidate(q llmQuickWin) bool {
	return strings.Contains(strings.ToLower(q.Title), "title")
}

func isBulkDescCandidate(q llmQuickWin) bool {
	lower := strings.ToLower(q.Title)
	return strings.Contains(lower, "description") || strings.Contains(lower, "meta description")
}

// collectBulkCandidates finds pages with an open title/description
// issue, the affected-pages list a bulk-fix suggestion attaches to.
func (e *Engine) collectBulkCandidates(domainID uint) (titlePages []uint, descPages []uint) {
	var issues []models.SEOIssue
	if err := e.db.Joins("JOIN pages ON pages.id = seo_issues.page_id").
		Where("pages.domain_id = ? AND seo_issues.status = ?", domainID, models.IssueStatusOpen).
		Find(&issues).Error; err != nil {
		return nil, nil
	}
	for _, issue := range issues {
		switch issue.Type {
		case models.IssueTitleMissing, models.IssueTitleTooShort, models.IssueTitleTooLong:
			titlePages = append(titlePages, issue.PageID)
		case models.IssueDescriptionMissing, models.IssueDescriptionTooShort, models.IssueDescriptionTooLong:
			descPages = append(descPages, issue.PageID)
		}
	}
	return titlePages, descPages
}

func bulkSuggestion(domainID uint, t models.SuggestionType, q llmQuickWin, pageIDs []uint) models.AISuggestion {
	return models.AISuggestion{
		DomainID:         domainID,
		Type:             t,
		Priority:         models.PriorityHigh,
		Title:            q.Title,
		Description:      q.Description,
		ExpectedImpact:   q.ExpectedImpact,
		ActionData:       datatypes.JSONMap{"page_ids": pageIDs},
		IsAutoApplicable: true,
		Status:           models.SuggestionPending,
	}
}

func isAutoApplicableQuickWin(subType string) bool {
	switch models.QuickWinSubType(subType) {
	case models.QuickWinAddOGTags, models.QuickWinAddCanonical, models.QuickWinAddSchema:
		return true
	default:
		return false
	}
}

func isAutoApplicablePayload(suggestionType string, actionData datatypes.JSONMap) bool {
	switch models.SuggestionType(suggestionType) {
	case models.SuggestionTitle:
		_, ok := actionData["new_title"]
		return ok
	case models.SuggestionInternalLink:
		_, hasLinks := actionData["suggested_links"]
		return hasLinks
	default:
		return false
	}
}

// cacheAnalysis persists the raw LLM response in AIAnalysisCache
// (spec.md §4.8 step 8's DB-side record; the vector-store sync of the
// analysis_cache collection happens separately via
// vectorstore.Store.SyncDomain once learning state is refreshed).
func (e *Engine) cacheAnalysis(ctx context.Context, domainID uint, raw string) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return
	}
	entry := models.AIAnalysisCache{
		DomainID:     domainID,
		AnalysisType: "full_domain",
		ContextHash:  prompts.FullAnalysisVersion,
		Result:       datatypes.JSONMap(payload),
		ExpiresAt:    time.Now().Add(cacheTTL),
	}
	_ = e.db.Where("domain_id = ? AND analysis_type = ? AND context_hash = ?", domainID, entry.AnalysisType, entry.ContextHash).
		Assign(entry).FirstOrCreate(&entry).Error
}
