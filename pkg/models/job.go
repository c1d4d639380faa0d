package models

import (
	"time"

	"gorm.io/datatypes"
)

// JobType is the closed set of work pkg/jobqueue workers execute, one per
// scheduler trigger (spec.md §4.12) plus the on-demand HTTP-triggered kinds.
type JobType string

const (
	JobTypeFullRefresh      JobType = "full_refresh"
	JobTypeGSCRefresh       JobType = "gsc_refresh"
	JobTypeAIAnalysis       JobType = "ai_analysis"
	JobTypePageAnalyze      JobType = "page_analyze"
	JobTypeIssueAutoFix     JobType = "issue_auto_fix"
	JobTypeSuggestionApply  JobType = "suggestion_apply"
	JobTypeVectorSync       JobType = "vector_sync"
	JobTypeEffectivenessEval JobType = "effectiveness_eval"
	JobTypeDailySnapshot    JobType = "daily_snapshot"
	JobTypeSitemapDeploy    JobType = "sitemap_deploy"
)

// JobStatus mirrors the task states exposed over GET /tasks/{id} (spec.md §6).
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one unit of queued work. DomainID is nullable because
// suggestion/issue-scoped jobs (auto-fix, suggestion-apply) key off their
// own target id instead.
type Job struct {
	ID       uint    `gorm:"primaryKey"`
	Type     JobType `gorm:"not null;index"`
	Status   JobStatus `gorm:"not null;default:pending;index"`
	DomainID *uint   `gorm:"index"`

	// TargetID is the row id the job acts on when it isn't domain-scoped
	// (a page id for page_analyze, an issue id for issue_auto_fix, a
	// suggestion id for suggestion_apply, an edit session id for
	// sitemap_deploy).
	TargetID *uint `gorm:"column:target_id"`

	// Params carries job-specific options (e.g. verify=true for page_analyze,
	// deploy_to_git for suggestion_apply).
	Params datatypes.JSONMap `gorm:"column:params"`

	Current int    `gorm:"column:current"`
	Total   int    `gorm:"column:total"`
	Percent int    `gorm:"column:percent"`
	Message string `gorm:"column:message"`

	Result datatypes.JSONMap `gorm:"column:result"`
	Error  string            `gorm:"column:error"`

	StartedAt   *time.Time `gorm:"column:started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Job) TableName() string { return "jobs" }

// Progress is the typed (current, total, percent, status) callback payload
// shared by every long-running operation (spec.md §9 design notes).
type Progress struct {
	Current int
	Total   int
	Percent int
	Message string
}

// ProgressFunc is invoked at every major milestone of a staged operation
// (refresh orchestrator, AI analysis engine).
type ProgressFunc func(p Progress)
