package models

import (
	"time"

	"gorm.io/datatypes"
)

// IssueType is the closed taxonomy from spec.md §4.5.
type IssueType string

const (
	IssueTitleMissing        IssueType = "title_missing"
	IssueTitleTooShort       IssueType = "title_too_short"
	IssueTitleTooLong        IssueType = "title_too_long"
	IssueDescriptionMissing  IssueType = "description_missing"
	IssueDescriptionTooShort IssueType = "description_too_short"
	IssueDescriptionTooLong  IssueType = "description_too_long"
	IssueH1Missing           IssueType = "h1_missing"
	IssueH1Multiple          IssueType = "h1_multiple"
	IssueImagesMissingAlt    IssueType = "images_missing_alt"
	IssueOpenGraphIncomplete IssueType = "open_graph_incomplete"
	IssueLowInternalLinks    IssueType = "low_internal_link_count"
	IssueThinContent         IssueType = "thin_content"
	IssueSlowLCP             IssueType = "slow_lcp"
	IssueHighCLS             IssueType = "high_cls"
)

// Severity levels and their health-score penalties (spec.md §4.5).
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// SeverityPenalty returns the health-score penalty for a severity level.
func SeverityPenalty(s Severity) int {
	switch s {
	case SeverityCritical:
		return 15
	case SeverityWarning:
		return 7
	case SeverityInfo:
		return 3
	default:
		return 0
	}
}

// FixTimeMinutes returns the estimated fix time contribution for a severity level.
func FixTimeMinutes(s Severity) int {
	switch s {
	case SeverityCritical:
		return 20
	case SeverityWarning:
		return 10
	case SeverityInfo:
		return 5
	default:
		return 0
	}
}

// IssueStatus is the lifecycle state of an SEOIssue (spec.md §3).
type IssueStatus string

const (
	IssueStatusOpen           IssueStatus = "open"
	IssueStatusApplied        IssueStatus = "applied"
	IssueStatusAutoFixed      IssueStatus = "auto_fixed"
	IssueStatusDeployed       IssueStatus = "deployed"
	IssueStatusVerified       IssueStatus = "verified"
	IssueStatusNeedsAttention IssueStatus = "needs_attention"
	IssueStatusNotDeployed    IssueStatus = "not_deployed"
)

// SEOIssue is a single detected defect on a page. At most one *open* issue
// of a given type may exist per page (spec.md property 6); re-detections
// overwrite open issues but never resolved ones.
type SEOIssue struct {
	ID       uint      `gorm:"primaryKey"`
	PageID   uint      `gorm:"not null;index:idx_issue_page_type"`
	Type     IssueType `gorm:"not null;index:idx_issue_page_type"`
	Severity Severity  `gorm:"not null"`

	Title   string
	Message string

	CurrentValue   string `gorm:"column:current_value"`
	SuggestedValue string `gorm:"column:suggested_value"`

	AutoFixAvailable bool `gorm:"column:auto_fix_available"`

	Status             IssueStatus `gorm:"not null;default:open;index"`
	VerificationStatus string      `gorm:"column:verification_status"`
	DeploymentCommit   string      `gorm:"column:deployment_commit"`

	DetectedAt time.Time `gorm:"column:detected_at"`
	FixedAt    *time.Time `gorm:"column:fixed_at"`
	VerifiedAt *time.Time `gorm:"column:verified_at"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SEOIssue) TableName() string { return "seo_issues" }

// OpenStatuses are statuses treated as "currently open" by the deduplication
// invariant; resolved/deployed/verified issues are never reopened by a
// detector run (spec.md property 6).
var OpenStatuses = []IssueStatus{IssueStatusOpen}

// TerminalStatuses are statuses the idempotent detector must never recreate.
var TerminalStatuses = []IssueStatus{
	IssueStatusApplied,
	IssueStatusAutoFixed,
	IssueStatusDeployed,
	IssueStatusVerified,
	IssueStatusNeedsAttention,
}

// FixStatus is the lifecycle of an AIFixHistory row.
type FixStatus string

const (
	FixStatusApplied   FixStatus = "applied"
	FixStatusDeployed  FixStatus = "deployed"
	FixStatusVerified  FixStatus = "verified"
	FixStatusSuperseded FixStatus = "superseded"
	FixStatusRecurred  FixStatus = "recurred"
)

// Effectiveness classifies a past fix's post-deploy impact.
type Effectiveness string

const (
	EffectivenessUnknown     Effectiveness = "unknown"
	EffectivenessEffective   Effectiveness = "effective"
	EffectivenessPartial     Effectiveness = "partial"
	EffectivenessIneffective Effectiveness = "ineffective"
	EffectivenessNegative    Effectiveness = "negative"
)

// ReproposableAfterFilter reports whether a new suggestion of the same
// (page, type) may be proposed given a past fix's effectiveness
// (spec.md property 7: re-propose only if ineffective/negative).
func ReproposableAfterFilter(e Effectiveness) bool {
	return e == EffectivenessIneffective || e == EffectivenessNegative
}

// AIFixHistory records one LLM-generated correction attempt. Many rows may
// accumulate for the same (page, issue-type); older ones move to
// FixStatusSuperseded when a new fix for the same type is applied.
type AIFixHistory struct {
	ID        uint      `gorm:"primaryKey"`
	PageID    uint      `gorm:"not null;index:idx_fixhistory_page_type"`
	IssueType IssueType `gorm:"not null;index:idx_fixhistory_page_type"`

	OriginalValue   string `gorm:"column:original_value"`
	FixedValue      string `gorm:"column:fixed_value"`
	LLMExplanation  string `gorm:"column:llm_explanation"`
	LLMConfidence   float64 `gorm:"column:llm_confidence"`
	ModelID         string  `gorm:"column:model_id"`

	ContextSnapshot  datatypes.JSONMap `gorm:"column:context_snapshot"`
	PreFixMetrics    datatypes.JSONMap `gorm:"column:pre_fix_metrics"`

	Status           FixStatus     `gorm:"not null;default:applied;index"`
	Effectiveness    Effectiveness `gorm:"not null;default:unknown"`
	RecurrenceCount  int           `gorm:"column:recurrence_count;default:0"`
	IssueRecurred    bool          `gorm:"column:issue_recurred;default:false"`

	DeploymentCommit string `gorm:"column:deployment_commit"`

	AppliedAt  time.Time  `gorm:"column:applied_at"`
	DeployedAt *time.Time `gorm:"column:deployed_at"`
	VerifiedAt *time.Time `gorm:"column:verified_at"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AIFixHistory) TableName() string { return "ai_fix_histories" }
