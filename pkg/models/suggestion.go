package models

import (
	"time"

	"gorm.io/datatypes"
)

// SuggestionType is the closed set from spec.md §4.8/§4.9, including bulk types.
type SuggestionType string

const (
	SuggestionTitle          SuggestionType = "title"
	SuggestionDescription    SuggestionType = "description"
	SuggestionStructure      SuggestionType = "structure"
	SuggestionKeyword        SuggestionType = "keyword"
	SuggestionInternalLink   SuggestionType = "internal_link"
	SuggestionQuickWin       SuggestionType = "quick_win"
	SuggestionPriorityAction SuggestionType = "priority_action"
	SuggestionBulkFixTitle   SuggestionType = "bulk_fix_title"
	SuggestionBulkFixDesc    SuggestionType = "bulk_fix_description"
)

// QuickWinSubType enumerates §4.9's quick_win dispatch sub-types.
type QuickWinSubType string

const (
	QuickWinAddOGTags        QuickWinSubType = "add_og_tags"
	QuickWinAddCanonical     QuickWinSubType = "add_canonical"
	QuickWinAddSchema        QuickWinSubType = "add_schema"
	QuickWinSitemapSubmit    QuickWinSubType = "sitemap_submit"
	QuickWinRequestIndexing  QuickWinSubType = "request_indexing"
	QuickWinRobotsTxt        QuickWinSubType = "robots_txt"
)

// SuggestionPriority ranks 1 (highest) through 3 (lowest).
type SuggestionPriority int

const (
	PriorityHigh   SuggestionPriority = 1
	PriorityMedium SuggestionPriority = 2
	PriorityLow    SuggestionPriority = 3
)

// SuggestionStatus implements the tracking state machine in spec.md §4.11.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApplied  SuggestionStatus = "applied"
	SuggestionTracking SuggestionStatus = "tracking"
	SuggestionTracked  SuggestionStatus = "tracked"
	SuggestionRejected SuggestionStatus = "rejected"
)

// AISuggestion is a domain- or page-scoped recommendation produced by the
// AI analysis engine (§4.8) and carried through the effectiveness tracker
// (§4.11). PageID is nullable: a deleted page moves its suggestions to a
// domain-scoped state rather than cascading the delete.
type AISuggestion struct {
	ID       uint  `gorm:"primaryKey"`
	DomainID uint  `gorm:"not null;index"`
	PageID   *uint `gorm:"index"`

	Type           SuggestionType     `gorm:"not null;index"`
	Priority       SuggestionPriority `gorm:"not null"`
	Title          string
	Description    string
	ExpectedImpact string `gorm:"column:expected_impact"`

	// ActionData is a tagged-variant opaque payload, shape depends on Type
	// (see pkg/aifixer for the per-type decode contract).
	ActionData datatypes.JSONMap `gorm:"column:action_data"`

	IsAutoApplicable bool             `gorm:"column:is_auto_applicable"`
	Status           SuggestionStatus `gorm:"not null;default:pending;index"`

	BaselineMetrics datatypes.JSONMap `gorm:"column:baseline_metrics"`
	FinalMetrics    datatypes.JSONMap `gorm:"column:final_metrics"`
	ImpactAnalysis  datatypes.JSONMap `gorm:"column:impact_analysis"`
	EffectivenessScore *float64       `gorm:"column:effectiveness_score"`

	TrackingStartAt *time.Time `gorm:"column:tracking_start_at"`
	TrackingEndAt   *time.Time `gorm:"column:tracking_end_at"`
	TrackingDays    int        `gorm:"column:tracking_days;default:30"`

	AppliedAt *time.Time `gorm:"column:applied_at"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AISuggestion) TableName() string { return "ai_suggestions" }

// SuggestionDailySnapshot is one daily GSC measurement taken while a
// suggestion is in the `tracking` state (spec.md §4.11).
type SuggestionDailySnapshot struct {
	ID             uint      `gorm:"primaryKey"`
	SuggestionID   uint      `gorm:"not null;index:idx_sugsnap_suggestion_date,unique"`
	Date           time.Time `gorm:"not null;index:idx_sugsnap_suggestion_date,unique;type:date"`
	Impressions    int
	Clicks         int
	CTR            float64
	AvgPosition    float64
	CreatedAt      time.Time
}

func (SuggestionDailySnapshot) TableName() string { return "suggestion_daily_snapshots" }

// AIAnalysisCache is TTL-bounded memoisation of LLM outputs, keyed by
// (domain, analysis-type, context-hash). The context hash must include
// the prompt version (see pkg/aianalysis/prompts) so a prompt edit
// invalidates stale entries without a schema migration.
type AIAnalysisCache struct {
	ID           uint   `gorm:"primaryKey"`
	DomainID     uint   `gorm:"not null;index:idx_aicache_key,unique"`
	AnalysisType string `gorm:"not null;index:idx_aicache_key,unique"`
	ContextHash  string `gorm:"not null;index:idx_aicache_key,unique"`

	Result datatypes.JSONMap `gorm:"column:result"`

	ExpiresAt time.Time `gorm:"column:expires_at;index"`
	CreatedAt time.Time
}

func (AIAnalysisCache) TableName() string { return "ai_analysis_caches" }

// AILearningState tracks the vector-store sync status for a domain.
type AILearningState struct {
	ID                uint `gorm:"primaryKey"`
	DomainID          uint `gorm:"not null;uniqueIndex"`
	LastSyncAt        *time.Time `gorm:"column:last_sync_at"`
	PagesSynced       int        `gorm:"column:pages_synced"`
	EmbeddingsUpdated int        `gorm:"column:embeddings_updated"`
	Status            string     `gorm:"column:status"`
	QualityScore      float64    `gorm:"column:quality_score"`
	TotalFixes        int        `gorm:"column:total_fixes"`
	EffectiveFixes    int        `gorm:"column:effective_fixes"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AILearningState) TableName() string { return "ai_learning_states" }
