package aifixer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/models"
)

const minOverlapTokens = 2

var stopwords = func() map[string]bool {
	list := strings.Fields("the a an of to and in on for with is are was were this that it as by at or from")
	m := make(map[string]bool, len(list))
	for _, w := range list {
		m[w] = true
	}
	return m
}()

const keywordSystemPrompt = `You rewrite a single on-page field to improve density for a target keyword, without keyword stuffing. Respond as JSON: ` +
	`{"success": true, "suggested_value": "", "explanation": "", "confidence": 0.0}. ` +
	`Target density is 1-2% of total words; never repeat the keyword in consecutive sentences.`

const internalLinkSystemPrompt = `You propose an inline anchor-text link from a source page's content to a related target page. Respond as JSON: ` +
	`{"success": true, "suggested_value": "", "explanation": "", "confidence": 0.0}. ` +
	`suggested_value is the HTML anchor tag snippet (<a href="...">anchor text</a>) to insert, anchor text must read naturally in context.`

// ApplySuggestion dispatches a pending AISuggestion to its type-specific
// handler (spec.md §4.9's apply-suggestion taxonomy) and moves it to
// applied on success. Baseline-metric capture and the tracking-state
// transition belong to pkg/effectiveness, not here.
func (f *Fixer) ApplySuggestion(ctx context.Context, suggestionID uint) (*models.AISuggestion, error) {
	var sug models.AISuggestion
	if err := f.db.First(&sug, suggestionID).Error; err != nil {
		return nil, fmt.Errorf("aifixer: loading suggestion: %w", err)
	}
	if sug.Status != models.SuggestionPending {
		return nil, fmt.Errorf("aifixer: suggestion %d is not pending (status %s)", sug.ID, sug.Status)
	}

	var domain models.Domain
	if err := f.db.First(&domain, sug.DomainID).Error; err != nil {
		return nil, fmt.Errorf("aifixer: loading domain: %w", err)
	}

	var err error
	switch sug.Type {
	case models.SuggestionTitle, models.SuggestionDescription:
		err = f.applyFieldSuggestion(&sug)
	case models.SuggestionStructure:
		err = f.applyStructureSuggestion(ctx, &sug)
	case models.SuggestionKeyword:
		err = f.applyKeywordSuggestion(ctx, &sug)
	case models.SuggestionInternalLink:
		err = f.applyInternalLinkSuggestion(ctx, &sug)
	case models.SuggestionQuickWin:
		err = f.applyQuickWin(ctx, &domain, &sug)
	case models.SuggestionPriorityAction:
		err = f.applyPriorityAction(ctx, &domain, &sug)
	case models.SuggestionBulkFixTitle, models.SuggestionBulkFixDesc:
		err = f.applyBulkFix(ctx, &sug)
	default:
		err = fmt.Errorf("aifixer: unknown suggestion type %s", sug.Type)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := f.db.Model(&sug).Updates(map[string]any{
		"status":     models.SuggestionApplied,
		"applied_at": &now,
	}).Error; err != nil {
		return nil, fmt.Errorf("aifixer: marking suggestion applied: %w", err)
	}
	sug.Status = models.SuggestionApplied
	sug.AppliedAt = &now
	return &sug, nil
}

func (f *Fixer) applyFieldSuggestion(sug *models.AISuggestion) error {
	if sug.PageID == nil {
		return fmt.Errorf("aifixer: suggestion %d has no page", sug.ID)
	}
	var page models.Page
	if err := f.db.First(&page, *sug.PageID).Error; err != nil {
		return fmt.Errorf("aifixer: loading page: %w", err)
	}

	var key, column string
	switch sug.Type {
	case models.SuggestionTitle:
		key, column = "new_title", "title"
	case models.SuggestionDescription:
		key, column = "new_description", "description"
	}
	value, ok := sug.ActionData[key].(string)
	if !ok || value == "" {
		return fmt.Errorf("aifixer: suggestion %d missing %q in action_data", sug.ID, key)
	}
	return f.db.Model(&page).Update(column, value).Error
}

// applyStructureSuggestion updates a SitemapEntry's priority/changefreq
// behind an EditSession (spec.md §3/§4.9/§4.10) and, when a
// SitemapDeployer is wired, regenerates and deploys the sitemap.
func (f *Fixer) applyStructureSuggestion(ctx context.Context, sug *models.AISuggestion) error {
	if sug.PageID == nil {
		return fmt.Errorf("aifixer: structure suggestion %d has no page", sug.ID)
	}
	updates := map[string]any{}
	if p, ok := sug.ActionData["priority"].(float64); ok {
		updates["priority"] = p
	}
	if cf, ok := sug.ActionData["change_freq"].(string); ok {
		updates["change_freq"] = models.ChangeFreq(cf)
	}
	if len(updates) == 0 {
		return fmt.Errorf("aifixer: structure suggestion %d has no priority/change_freq in action_data", sug.ID)
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		session := models.EditSession{DomainID: sug.DomainID, Status: models.EditSessionDraft}
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		result := tx.Model(&models.SitemapEntry{}).
			Where("domain_id = ? AND page_id = ?", sug.DomainID, *sug.PageID).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		return tx.Model(&session).Updates(map[string]any{
			"modified_count": int(result.RowsAffected),
			"status":         models.EditSessionPreview,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("aifixer: applying structure suggestion: %w", err)
	}

	if f.sitemapDeployer != nil {
		if _, err := f.sitemapDeployer.RegenerateAndDeploy(ctx, sug.DomainID); err != nil {
			return fmt.Errorf("aifixer: deploying sitemap: %w", err)
		}
	}
	return nil
}

func (f *Fixer) applyKeywordSuggestion(ctx context.Context, sug *models.AISuggestion) error {
	if sug.PageID == nil {
		return fmt.Errorf("aifixer: keyword suggestion %d has no page", sug.ID)
	}
	if f.llm == nil {
		return fmt.Errorf("aifixer: keyword suggestion %d requires an LLM provider, none configured", sug.ID)
	}
	targetField, _ := sug.ActionData["target_field"].(string)
	keyword, _ := sug.ActionData["keyword"].(string)
	if targetField == "" || keyword == "" {
		return fmt.Errorf("aifixer: keyword suggestion %d missing target_field/keyword in action_data", sug.ID)
	}

	var page models.Page
	if err := f.db.First(&page, *sug.PageID).Error; err != nil {
		return fmt.Errorf("aifixer: loading page: %w", err)
	}

	var current, column string
	switch targetField {
	case "title":
		current, column = page.Title, "title"
	case "description":
		current, column = page.Description, "description"
	default:
		return fmt.Errorf("aifixer: keyword suggestion %d targets unsupported field %q", sug.ID, targetField)
	}

	userPrompt := fmt.Sprintf("Current %s: %q\nTarget keyword: %q\nURL: %s", targetField, current, keyword, page.URL)
	raw, err := f.llm.GenerateJSON(ctx, keywordSystemPrompt, userPrompt)
	if err != nil {
		return fmt.Errorf("aifixer: generating keyword rewrite: %w", err)
	}
	var resp generatorResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return fmt.Errorf("aifixer: parsing keyword rewrite response: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("aifixer: keyword rewrite declined: %s", resp.Explanation)
	}
	return f.db.Model(&page).Update(column, resp.SuggestedValue).Error
}

// applyInternalLinkSuggestion finds a related page by word-overlap and
// asks the LLM for an anchor-tag snippet to insert (spec.md §4.9). The
// Page model has no content field to splice the anchor into directly,
// so the snippet and target are recorded on the suggestion's
// action_data for the deployment pipeline to apply, the same deferred
// pattern used for H1/content/alt-text fixes in fixer.go.
func (f *Fixer) applyInternalLinkSuggestion(ctx context.Context, sug *models.AISuggestion) error {
	if sug.PageID == nil {
		return fmt.Errorf("aifixer: internal_link suggestion %d has no page", sug.ID)
	}
	if f.llm == nil {
		return fmt.Errorf("aifixer: internal_link suggestion %d requires an LLM provider, none configured", sug.ID)
	}
	var source models.Page
	if err := f.db.First(&source, *sug.PageID).Error; err != nil {
		return fmt.Errorf("aifixer: loading source page: %w", err)
	}
	var candidates []models.Page
	if err := f.db.Where("domain_id = ? AND id != ? AND is_active = ?", sug.DomainID, source.ID, true).Find(&candidates).Error; err != nil {
		return fmt.Errorf("aifixer: loading candidate pages: %w", err)
	}

	sourceTokens := contentTokens(source.Title + " " + source.Path)
	var target *models.Page
	bestOverlap := 0
	for i := range candidates {
		overlap := countOverlap(sourceTokens, contentTokens(candidates[i].Title+" "+candidates[i].Path))
		if overlap >= minOverlapTokens && overlap > bestOverlap {
			bestOverlap = overlap
			target = &candidates[i]
		}
	}
	if target == nil {
		return fmt.Errorf("aifixer: internal_link suggestion %d found no related page with >= %d shared tokens", sug.ID, minOverlapTokens)
	}

	userPrompt := fmt.Sprintf("Source page: %s (title: %q)\nTarget page to link to: %s (title: %q)",
		source.URL, source.Title, target.URL, target.Title)
	raw, err := f.llm.GenerateJSON(ctx, internalLinkSystemPrompt, userPrompt)
	if err != nil {
		return fmt.Errorf("aifixer: generating internal link: %w", err)
	}
	var resp generatorResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return fmt.Errorf("aifixer: parsing internal link response: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("aifixer: internal link generation declined: %s", resp.Explanation)
	}

	return f.db.Model(sug).Update("action_data", datatypes.JSONMap{
		"target_page_id": target.ID,
		"target_url":     target.URL,
		"anchor_snippet": resp.SuggestedValue,
		"shared_tokens":  bestOverlap,
	}).Error
}

func contentTokens(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	tokens := make(map[string]bool, len(fields))
	for _, w := range fields {
		if len(w) <= 2 || stopwords[w] {
			continue
		}
		tokens[w] = true
	}
	return tokens
}

func countOverlap(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}

// applyQuickWin dispatches one of the six quick_win sub-types (spec.md
// §4.9). add_og_tags/add_canonical/add_schema require Git deployment;
// the rest are served directly against Search Console or a live fetch.
func (f *Fixer) applyQuickWin(ctx context.Context, domain *models.Domain, sug *models.AISuggestion) error {
	subType, _ := sug.ActionData["sub_type"].(string)
	switch models.QuickWinSubType(subType) {
	case models.QuickWinAddOGTags, models.QuickWinAddCanonical, models.QuickWinAddSchema:
		if f.deployer == nil {
			return fmt.Errorf("aifixer: quick win %q requires Git deployment but no deployer is configured; apply manually", subType)
		}
		return f.deployer.Deploy(ctx, domain.ID)
	case models.QuickWinSitemapSubmit:
		return f.submitSitemap(ctx, domain)
	case models.QuickWinRequestIndexing:
		return f.requestIndexing(ctx, domain, sug)
	case models.QuickWinRobotsTxt:
		return f.checkRobotsTxt(ctx, domain, sug)
	default:
		return fmt.Errorf("aifixer: unknown quick_win sub_type %q", subType)
	}
}

func (f *Fixer) submitSitemap(ctx context.Context, domain *models.Domain) error {
	if f.searchConsole == nil {
		return fmt.Errorf("aifixer: no Search Console client configured")
	}
	if domain.SearchConsoleSiteURL == "" {
		return fmt.Errorf("aifixer: domain %d has no search_console_site_url", domain.ID)
	}
	sitemapURL := fmt.Sprintf("%s://%s/sitemap.xml", domain.Scheme, domain.Hostname)
	return f.searchConsole.SubmitSitemap(ctx, domain.SearchConsoleSiteURL, sitemapURL)
}

// requestIndexing implements the "request_indexing" quick win as a
// documented proxy: Search Console's public API has no endpoint to
// request indexing of an arbitrary URL (that capability is restricted
// to the Indexing API's own content types), so this runs a fresh URL
// Inspection and records the verdict instead. A genuine indexing
// request still requires manual submission through Search Console.
func (f *Fixer) requestIndexing(ctx context.Context, domain *models.Domain, sug *models.AISuggestion) error {
	if f.searchConsole == nil {
		return fmt.Errorf("aifixer: no Search Console client configured")
	}
	if sug.PageID == nil {
		return fmt.Errorf("aifixer: request_indexing suggestion %d has no page", sug.ID)
	}
	var page models.Page
	if err := f.db.First(&page, *sug.PageID).Error; err != nil {
		return fmt.Errorf("aifixer: loading page: %w", err)
	}
	status := f.searchConsole.InspectURL(ctx, domain.SearchConsoleSiteURL, page.URL)
	if status.Err != nil {
		return fmt.Errorf("aifixer: inspecting %s: %w", page.URL, status.Err)
	}
	return f.db.Model(sug).Update("action_data", datatypes.JSONMap{
		"sub_type":       string(models.QuickWinRequestIndexing),
		"verdict":        string(status.Verdict),
		"is_indexed":     status.IsIndexed,
		"coverage_state": status.CoverageState,
	}).Error
}

// checkRobotsTxt verifies a page's path isn't disallowed by the
// domain's live robots.txt, recording the result on the suggestion.
func (f *Fixer) checkRobotsTxt(ctx context.Context, domain *models.Domain, sug *models.AISuggestion) error {
	if sug.PageID == nil {
		return fmt.Errorf("aifixer: robots_txt suggestion %d has no page", sug.ID)
	}
	var page models.Page
	if err := f.db.First(&page, *sug.PageID).Error; err != nil {
		return fmt.Errorf("aifixer: loading page: %w", err)
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", domain.Scheme, domain.Hostname)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return fmt.Errorf("aifixer: building robots.txt request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("aifixer: fetching robots.txt: %w", err)
	}
	defer resp.Body.Close()

	blocked := false
	if resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("aifixer: reading robots.txt: %w", err)
		}
		blocked = robotsDisallows(string(body), page.Path)
	}

	return f.db.Model(sug).Update("action_data", datatypes.JSONMap{
		"sub_type": string(models.QuickWinRobotsTxt),
		"blocked":  blocked,
	}).Error
}

// robotsDisallows reports whether a Disallow rule under a User-agent: *
// block (or one with no preceding User-agent line) prefix-matches
// path. A one-off prefix scan, not a full robots.txt parser — wildcard
// patterns and Allow-rule precedence are out of scope for this check.
func robotsDisallows(body, path string) bool {
	applies := true
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		directive := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])
		switch directive {
		case "user-agent":
			applies = value == "*"
		case "disallow":
			if applies && value != "" && strings.HasPrefix(path, value) {
				return true
			}
		}
	}
	return false
}

// applyPriorityAction dispatches to the two Search-Console-backed
// actions from spec.md §4.9: submitting the sitemap, or checking index
// status across a batch of page URLs.
func (f *Fixer) applyPriorityAction(ctx context.Context, domain *models.Domain, sug *models.AISuggestion) error {
	action, _ := sug.ActionData["action"].(string)
	switch action {
	case "submit_sitemap":
		return f.submitSitemap(ctx, domain)
	case "batch_indexing":
		return f.batchRequestIndexing(ctx, domain, sug)
	default:
		return fmt.Errorf("aifixer: unknown priority_action %q", action)
	}
}

func (f *Fixer) batchRequestIndexing(ctx context.Context, domain *models.Domain, sug *models.AISuggestion) error {
	if f.searchConsole == nil {
		return fmt.Errorf("aifixer: no Search Console client configured")
	}
	var urls []string
	if raw, ok := sug.ActionData["page_urls"].([]interface{}); ok {
		for _, u := range raw {
			if s, ok := u.(string); ok {
				urls = append(urls, s)
			}
		}
	}
	if len(urls) == 0 {
		return fmt.Errorf("aifixer: priority_action %d has no page_urls", sug.ID)
	}

	results := f.searchConsole.BatchInspectURLs(ctx, domain.SearchConsoleSiteURL, urls)
	indexed := 0
	for _, r := range results {
		if r.Err == nil && r.IsIndexed {
			indexed++
		}
	}
	return f.db.Model(sug).Update("action_data", datatypes.JSONMap{
		"action":        "batch_indexing",
		"page_urls":     urls,
		"checked_count": len(results),
		"indexed_count": indexed,
	}).Error
}

// applyBulkFix iterates the pages an earlier bulk_fix suggestion
// targeted, generating one value per page through BatchGenerator and
// applying each independently so one bad generation doesn't block the
// rest (the same per-item isolation used throughout this task).
func (f *Fixer) applyBulkFix(ctx context.Context, sug *models.AISuggestion) error {
	var issueType models.IssueType
	var column string
	switch sug.Type {
	case models.SuggestionBulkFixTitle:
		issueType, column = models.IssueTitleTooShort, "title"
	case models.SuggestionBulkFixDesc:
		issueType, column = models.IssueDescriptionTooShort, "description"
	}

	generator, ok := f.registry.Get(issueType)
	if !ok {
		return fmt.Errorf("aifixer: no generator registered for %s", issueType)
	}
	batch := NewBatchGenerator(generator)

	raw, _ := sug.ActionData["page_ids"].([]interface{})
	ids := make([]uint, 0, len(raw))
	for _, v := range raw {
		if n, ok := v.(float64); ok {
			ids = append(ids, uint(n))
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("aifixer: bulk suggestion %d has no page_ids", sug.ID)
	}

	var pages []models.Page
	if err := f.db.Where("id IN ?", ids).Find(&pages).Error; err != nil {
		return fmt.Errorf("aifixer: loading bulk pages: %w", err)
	}

	inputs := make([]GeneratorInput, len(pages))
	for i, p := range pages {
		current := p.Title
		if column == "description" {
			current = p.Description
		}
		inputs[i] = GeneratorInput{IssueType: issueType, CurrentValue: current, URL: p.URL}
	}
	outputs := batch.GenerateBatch(ctx, inputs)

	succeeded, failed := 0, 0
	err := f.db.Transaction(func(tx *gorm.DB) error {
		for i, out := range outputs {
			if !out.Success {
				failed++
				continue
			}
			if err := tx.Model(&pages[i]).Update(column, out.SuggestedValue).Error; err != nil {
				return err
			}
			succeeded++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("aifixer: applying bulk fix: %w", err)
	}

	return f.db.Model(sug).Update("action_data", datatypes.JSONMap{
		"applied_count": succeeded,
		"failed_count":  failed,
	}).Error
}
