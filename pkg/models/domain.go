// Package models holds the gorm-backed persistence types for the SEO
// analysis core: domains, pages, metrics snapshots, issues, AI fix
// history, suggestions, sitemap entries, edit sessions, and the AI
// learning/caching state. Field names and cascade rules mirror the ent
// schemas used by the rest of the pack, adapted to gorm's declarative
// struct-tag model (see DESIGN.md for why ent itself was dropped).
package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScanKind distinguishes a full Lighthouse scan from a lightweight GSC-only refresh.
type ScanKind string

const (
	ScanKindFull   ScanKind = "full"
	ScanKindGSC    ScanKind = "gsc_only"
	ScanKindVerify ScanKind = "verify"
)

// DeploymentStatus tracks the last known state of the domain's Git deployment.
type DeploymentStatus string

const (
	DeploymentStatusNone    DeploymentStatus = "none"
	DeploymentStatusSuccess DeploymentStatus = "success"
	DeploymentStatusFailed  DeploymentStatus = "failed"
)

// GitConfig holds the Git deployment configuration for a domain.
// Embedded as columns on Domain rather than a separate table: it is
// always loaded together with the domain and never queried independently.
type GitConfig struct {
	Enabled       bool   `gorm:"column:git_enabled;default:false"`
	RepositoryURL string `gorm:"column:git_repository_url"`
	Branch        string `gorm:"column:git_branch;default:main"`
	// CredentialRef is an opaque reference (env var name or secret-store key),
	// never the raw token — the raw token is resolved at deploy time and is
	// never persisted or logged (see pkg/masking).
	CredentialRef string `gorm:"column:git_credential_ref"`
	TargetPath    string `gorm:"column:git_target_path;default:/"`
	// FrameworkHint lets an operator pin a framework handler instead of relying
	// on auto-detection (see pkg/deploy.Registry).
	FrameworkHint string `gorm:"column:git_framework_hint"`
}

// Domain is the root aggregate: a registered hostname under active SEO
// management. It exclusively owns Pages, EditSessions, AILearningState,
// and DailyTrafficSnapshots (cascade delete, enforced by FK constraints
// created in the migrations under pkg/database/migrations).
type Domain struct {
	ID        uint   `gorm:"primaryKey"`
	Hostname  string `gorm:"uniqueIndex;not null"`
	Scheme    string `gorm:"default:https"`
	OwnerID   *uint  `gorm:"index"` // external ownership link; owning entity lives outside this module

	// Cached aggregate scores, recomputed by the aggregating stage of the
	// refresh orchestrator (pkg/refresh) from the latest snapshot per page.
	SEOScore           float64 `gorm:"column:seo_score"`
	PerformanceScore   float64 `gorm:"column:performance_score"`
	AccessibilityScore float64 `gorm:"column:accessibility_score"`

	LastFullScanAt    *time.Time `gorm:"column:last_full_scan_at"`
	LastGSCScanAt     *time.Time `gorm:"column:last_gsc_scan_at"`
	LastAIAnalysisAt  *time.Time `gorm:"column:last_ai_analysis_at"`
	LastDeployedAt    *time.Time `gorm:"column:last_deployed_at"`

	GitConfig

	DeploymentStatus DeploymentStatus `gorm:"column:deployment_status;default:none"`
	DeploymentError  string           `gorm:"column:deployment_error"`

	// ScanInFlight + ScanJobID implement the scheduler bridge's (§4.12)
	// per-domain in-flight guard so concurrent triggers are no-ops.
	ScanInFlight bool   `gorm:"column:scan_in_flight;default:false"`
	ScanJobID    string `gorm:"column:scan_job_id"`

	IsActive bool `gorm:"default:true;index"`

	SearchConsoleSiteURL string `gorm:"column:search_console_site_url"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Domain) TableName() string { return "domains" }

// Page is a node in the domain's discovered URL forest (§3 invariant: no
// cycles, parent always same-domain, depth = parent.depth+1 unless frozen
// by a manual edit).
type Page struct {
	ID         uint   `gorm:"primaryKey"`
	DomainID   uint   `gorm:"not null;index:idx_page_domain_url,unique"`
	URL        string `gorm:"not null;index:idx_page_domain_url,unique"`
	Path       string `gorm:"not null"`
	DepthLevel int    `gorm:"not null;default:0"`

	ParentID *uint `gorm:"index"`

	IsSubdomain bool   `gorm:"default:false"`
	Subdomain   string `gorm:"column:subdomain"`
	IsActive    bool   `gorm:"default:true;index"`

	Title       string
	Description string

	// ManuallyEdited freezes Parent/DepthLevel/UseManualPosition against the
	// refresh orchestrator's hierarchy stage (§4.4 persisting/hierarchy).
	ManuallyEdited     bool `gorm:"column:manually_edited;default:false"`
	UseManualPosition  bool `gorm:"column:use_manual_position;default:false"`

	LastAnalyzedAt *time.Time `gorm:"column:last_analyzed_at"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Page) TableName() string { return "pages" }

// CoreWebVitals holds the six Lighthouse-reported latency metrics.
// Embedded inline on SEOMetricsSnapshot (one row per snapshot, not a
// separate table — there is no independent lifecycle for these values).
type CoreWebVitals struct {
	LCP float64 `gorm:"column:cwv_lcp"`
	FID float64 `gorm:"column:cwv_fid"`
	CLS float64 `gorm:"column:cwv_cls"`
	FCP float64 `gorm:"column:cwv_fcp"`
	TTI float64 `gorm:"column:cwv_tti"`
	TBT float64 `gorm:"column:cwv_tbt"`
}

// IndexVerdict mirrors the Search-Console URL-Inspection verdict enum.
type IndexVerdict string

const (
	IndexVerdictPass    IndexVerdict = "PASS"
	IndexVerdictPartial IndexVerdict = "PARTIAL"
	IndexVerdictFail    IndexVerdict = "FAIL"
	IndexVerdictNeutral IndexVerdict = "NEUTRAL"
	IndexVerdictUnknown IndexVerdict = "UNKNOWN"
)

// SEOMetricsSnapshot is append-only: a new row per collection run. Only
// the Search-Console fields may be back-filled once after creation (the
// collector's phase 1/3, see pkg/collector).
type SEOMetricsSnapshot struct {
	ID        uint      `gorm:"primaryKey"`
	PageID    uint      `gorm:"not null;index"`
	Timestamp time.Time `gorm:"not null;index"`

	// Lighthouse category scores, 0-100.
	ScoreSEO           *int `gorm:"column:score_seo"`
	ScorePerformance   *int `gorm:"column:score_performance"`
	ScoreAccessibility *int `gorm:"column:score_accessibility"`
	ScoreBestPractices *int `gorm:"column:score_best_practices"`
	ScorePWA           *int `gorm:"column:score_pwa"`

	CoreWebVitals

	// Search-Console fields, back-filled after Lighthouse section is written.
	Impressions    *int     `gorm:"column:gsc_impressions"`
	Clicks         *int     `gorm:"column:gsc_clicks"`
	CTR            *float64 `gorm:"column:gsc_ctr"`
	AvgPosition    *float64 `gorm:"column:gsc_avg_position"`
	TopQueries     datatypes.JSONSlice[TopQuery] `gorm:"column:gsc_top_queries"`

	IsIndexed      *bool        `gorm:"column:is_indexed"`
	IndexVerdict   IndexVerdict `gorm:"column:index_verdict"`
	CoverageState  string       `gorm:"column:coverage_state"`

	MobileFriendly *bool `gorm:"column:mobile_friendly"`

	CreatedAt time.Time
}

func (SEOMetricsSnapshot) TableName() string { return "seo_metrics_snapshots" }

// TopQuery is one row of the Search-Console top-queries list embedded in a snapshot.
type TopQuery struct {
	Query       string  `json:"query"`
	Impressions int     `json:"impressions"`
	Clicks      int     `json:"clicks"`
	CTR         float64 `json:"ctr"`
	Position    float64 `json:"position"`
}

// DailyTrafficSnapshot is one append-only row per domain per day.
type DailyTrafficSnapshot struct {
	ID          uint      `gorm:"primaryKey"`
	DomainID    uint      `gorm:"not null;index:idx_traffic_domain_date,unique"`
	Date        time.Time `gorm:"not null;index:idx_traffic_domain_date,unique;type:date"`
	Impressions int
	Clicks      int
	CTR         float64
	AvgPosition float64
	CreatedAt   time.Time
}

func (DailyTrafficSnapshot) TableName() string { return "daily_traffic_snapshots" }
