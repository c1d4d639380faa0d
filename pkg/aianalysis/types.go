// Package aianalysis implements C8 (spec.md §4.8): the full-domain RAG
// + LLM analysis workflow that turns a knowledge-builder context and
// retrieved vector-store knowledge into persisted AISuggestion rows.
package aianalysis

import "github.com/seocore/seocore/pkg/models"

// ProgressFunc reports workflow progress, the same callback contract
// §4.4's refresh orchestrator uses.
type ProgressFunc func(step string, percent int)

// llmPriority is one site-wide top-priority item from the model response.
type llmPriority struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Priority       int    `json:"priority"`
	AffectedPage   string `json:"affected_page"`
	ExpectedImpact string `json:"expected_impact"`
}

// llmQuickWin is one site-wide quick-win item.
type llmQuickWin struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	SubType        string `json:"sub_type"`
	AffectedPage   string `json:"affected_page"`
	ExpectedImpact string `json:"expected_impact"`
}

// llmPageSuggestion is one page-scoped suggestion.
type llmPageSuggestion struct {
	PageURL     string                 `json:"page_url"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Priority    int                    `json:"priority"`
	ActionData  map[string]interface{} `json:"action_data"`
}

// llmResponse is the raw parsed shape of the model's JSON response,
// per the schema fixed in prompts.FullAnalysisSystemInstruction.
type llmResponse struct {
	TopPriorities   []llmPriority       `json:"top_priorities"`
	QuickWins       []llmQuickWin       `json:"quick_wins"`
	PageSuggestions []llmPageSuggestion `json:"page_suggestions"`
	StrategySummary string              `json:"strategy_summary"`
}

// AnalysisResult is what AnalyzeDomain returns: the suggestions it
// persisted plus the model's free-text strategy summary.
type AnalysisResult struct {
	Suggestions     []models.AISuggestion
	StrategySummary string
	FallbackUsed    bool
}
