// Package knowledge implements C7 (spec.md §4.7): transforms raw
// database rows for a domain into a structured context object consumed
// by the AI analysis engine (pkg/aianalysis), plus a compact text
// rendering of the same data for the LLM prompt.
package knowledge

import "github.com/seocore/seocore/pkg/models"

// DomainOverview summarizes the domain as a whole.
type DomainOverview struct {
	Hostname           string
	TotalPages         int
	ActivePages        int
	AvgSEOScore        float64
	AvgPerformance     float64
	AvgAccessibility   float64
	HealthScore        int
	GSCConnected       bool
	LastFullScanAt     string
	OpenIssueCount     int
}

// URLStructure describes how the discovered pages are organized.
type URLStructure struct {
	DepthHistogram      map[int]int
	PathPrefixHistogram map[string]int
	OrphanCount         int
}

// ContentTypeBucket groups pages matched by a URL-pattern heuristic with
// the priority/changefreq norms that suggestions for that bucket should
// respect (spec.md §4.7's content-type inference).
type ContentTypeBucket struct {
	Label             string
	Pattern           string
	PageCount         int
	RecommendedPrio   models.SuggestionPriority
	RecommendedFreq   models.ChangeFreq
}

// ProblemPage is one page surfaced in the SEO-health summary.
type ProblemPage struct {
	PageID     uint
	URL        string
	HealthProxy int
	IssueCount int
}

// SEOHealth aggregates issue and score data across the domain.
type SEOHealth struct {
	IssuesByType      map[models.IssueType]int
	TopProblemPages   []ProblemPage
	ScoreDistribution map[string]int // "0-40", "40-70", "70-90", "90-100"
}

// QueryInsight is one aggregated Search-Console query across pages.
type QueryInsight struct {
	Query       string
	TotalClicks int
	TotalImpr   int
	PageCount   int
	Pages       []string
}

// KeywordInsights summarizes Search-Console query performance.
type KeywordInsights struct {
	TopQueries      []QueryInsight
	Cannibalized    []QueryInsight // queries appearing on more than one page
}

// OpportunityUrgency ranks an improvement opportunity.
type OpportunityUrgency string

const (
	OpportunityUrgent OpportunityUrgency = "urgent"
	OpportunityHigh   OpportunityUrgency = "high"
	OpportunityMedium OpportunityUrgency = "medium"
	OpportunityLow    OpportunityUrgency = "low"
)

// Opportunity is one ranked improvement-opportunity entry.
type Opportunity struct {
	Urgency     OpportunityUrgency
	Title       string
	Description string
	AffectedURL string
}

// Context is the full structured output of the knowledge builder.
type Context struct {
	Domain        DomainOverview
	URLStructure  URLStructure
	ContentTypes  []ContentTypeBucket
	Health        SEOHealth
	Keywords      KeywordInsights
	Opportunities []Opportunity
}
