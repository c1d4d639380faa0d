package aifixer

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/llmclient"
	"github.com/seocore/seocore/pkg/models"
	"github.com/seocore/seocore/pkg/searchconsole"
)

const pastAttemptLimit = 3

// SiteDeployer triggers a Git deployment of a domain's pending
// file-level content changes (pkg/deploy.Pipeline satisfies this).
// quick_win sub-types that patch live source files need one.
type SiteDeployer interface {
	Deploy(ctx context.Context, domainID uint) error
}

// SitemapDeployer regenerates and deploys a domain's sitemap.xml from
// its current SitemapEntry rows (pkg/sitemap satisfies this).
type SitemapDeployer interface {
	RegenerateAndDeploy(ctx context.Context, domainID uint) (*models.EditSession, error)
}

// Fixer applies AI-generated corrections and tracks their history.
type Fixer struct {
	db       *gorm.DB
	registry *Registry
	modelID  string

	llm             llmclient.Provider
	searchConsole   *searchconsole.Client
	deployer        SiteDeployer
	sitemapDeployer SitemapDeployer
}

// Config collects Fixer's dependencies. LLM, SearchConsole, Deployer,
// and SitemapDeployer are optional: a Fixer built without them still
// serves ApplyFix and the field-only suggestion types, returning an
// error only if a handler that needs the missing dependency is reached.
type Config struct {
	DB              *gorm.DB
	Registry        *Registry
	ModelID         string
	LLM             llmclient.Provider
	SearchConsole   *searchconsole.Client
	Deployer        SiteDeployer
	SitemapDeployer SitemapDeployer
}

// New builds a Fixer from cfg. modelID is recorded on every
// AIFixHistory row (pkg/llmclient.Provider.Model()).
func New(cfg Config) *Fixer {
	return &Fixer{
		db:              cfg.DB,
		registry:        cfg.Registry,
		modelID:         cfg.ModelID,
		llm:             cfg.LLM,
		searchConsole:   cfg.SearchConsole,
		deployer:        cfg.Deployer,
		sitemapDeployer: cfg.SitemapDeployer,
	}
}

// ApplyFix runs the per-issue generate-then-apply contract from
// spec.md §4.9 for a single open SEOIssue.
func (f *Fixer) ApplyFix(ctx context.Context, issueID uint) (*models.AIFixHistory, error) {
	var issue models.SEOIssue
	if err := f.db.First(&issue, issueID).Error; err != nil {
		return nil, fmt.Errorf("aifixer: loading issue: %w", err)
	}
	var page models.Page
	if err := f.db.First(&page, issue.PageID).Error; err != nil {
		return nil, fmt.Errorf("aifixer: loading page: %w", err)
	}

	generator, ok := f.registry.Get(issue.Type)
	if !ok {
		return nil, fmt.Errorf("aifixer: no generator registered for issue type %s", issue.Type)
	}

	pastAttempts, err := f.loadPastAttempts(page.ID, issue.Type)
	if err != nil {
		return nil, err
	}

	input := GeneratorInput{
		IssueType:    issue.Type,
		CurrentValue: issue.CurrentValue,
		URL:          page.URL,
		PastAttempts: pastAttempts,
	}
	output, err := generator.Generate(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("aifixer: generating fix: %w", err)
	}
	if !output.Success {
		return nil, fmt.Errorf("aifixer: generator declined to produce a fix: %s", output.Explanation)
	}

	var fix *models.AIFixHistory
	now := time.Now()
	err = f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.AIFixHistory{}).
			Where("page_id = ? AND issue_type = ? AND status IN ?", page.ID, issue.Type, []models.FixStatus{models.FixStatusApplied, models.FixStatusDeployed}).
			Update("status", models.FixStatusSuperseded).Error; err != nil {
			return err
		}

		entry := models.AIFixHistory{
			PageID:          page.ID,
			IssueType:       issue.Type,
			OriginalValue:   issue.CurrentValue,
			FixedValue:      output.SuggestedValue,
			LLMExplanation:  output.Explanation,
			LLMConfidence:   output.Confidence,
			ModelID:         f.modelID,
			ContextSnapshot: datatypes.JSONMap{"url": page.URL, "title": page.Title, "description": page.Description},
			PreFixMetrics:   datatypes.JSONMap{},
			Status:          models.FixStatusApplied,
			Effectiveness:   models.EffectivenessUnknown,
			AppliedAt:       now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		fix = &entry

		applyPageField(tx, &page, issue.Type, output.SuggestedValue)

		return tx.Model(&issue).Updates(map[string]any{
			"status":          models.IssueStatusAutoFixed,
			"suggested_value": output.SuggestedValue,
			"fixed_at":        &now,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("aifixer: applying fix: %w", err)
	}
	return fix, nil
}

// applyPageField writes the generated value onto the Page row for the
// issue types the Page model directly owns (title, description). H1,
// content, and alt-text fixes live only in AIFixHistory until the
// deployment pipeline patches the live source file.
func applyPageField(tx *gorm.DB, page *models.Page, issueType models.IssueType, value string) {
	switch issueType {
	case models.IssueTitleMissing, models.IssueTitleTooShort, models.IssueTitleTooLong:
		tx.Model(page).Update("title", value)
	case models.IssueDescriptionMissing, models.IssueDescriptionTooShort, models.IssueDescriptionTooLong:
		tx.Model(page).Update("description", value)
	}
}

func (f *Fixer) loadPastAttempts(pageID uint, issueType models.IssueType) ([]PastAttempt, error) {
	var rows []models.AIFixHistory
	if err := f.db.Where("page_id = ? AND issue_type = ?", pageID, issueType).
		Order("applied_at DESC").Limit(pastAttemptLimit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("aifixer: loading past attempts: %w", err)
	}
	attempts := make([]PastAttempt, len(rows))
	for i, r := range rows {
		attempts[i] = PastAttempt{FixedValue: r.FixedValue, Explanation: r.LLMExplanation, Effectiveness: r.Effectiveness}
	}
	return attempts, nil
}

// DetectRecurrence implements spec.md §4.9's recurrence rule: a fix
// history row in deployed/verified with issue_recurred=false, whose
// issue type is detected again in a later scan, moves to recurred.
func (f *Fixer) DetectRecurrence(pageID uint, freshlyDetectedTypes []models.IssueType) error {
	detected := make(map[models.IssueType]bool, len(freshlyDetectedTypes))
	for _, t := range freshlyDetectedTypes {
		detected[t] = true
	}

	var rows []models.AIFixHistory
	if err := f.db.Where("page_id = ? AND status IN ? AND issue_recurred = ?",
		pageID, []models.FixStatus{models.FixStatusDeployed, models.FixStatusVerified}, false).Find(&rows).Error; err != nil {
		return fmt.Errorf("aifixer: loading fix history: %w", err)
	}

	return f.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if !detected[row.IssueType] {
				continue
			}
			if err := tx.Model(&row).Updates(map[string]any{
				"status":           models.FixStatusRecurred,
				"issue_recurred":   true,
				"recurrence_count": gorm.Expr("recurrence_count + 1"),
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
