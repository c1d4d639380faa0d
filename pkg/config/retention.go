package config

import "time"

// RetentionConfig controls data retention and cleanup behavior.
type RetentionConfig struct {
	// AnalysisCacheTTL is the maximum age of an AIAnalysisCache row
	// before it is considered expired and purged. Normal reads already
	// check expires_at; this is a safety net against unbounded table
	// growth when a domain is re-analyzed often.
	AnalysisCacheTTL time.Duration `yaml:"analysis_cache_ttl"`

	// TrafficSnapshotRetentionDays is how many days of
	// DailyTrafficSnapshot rows to keep per domain.
	TrafficSnapshotRetentionDays int `yaml:"traffic_snapshot_retention_days"`

	// FailedEditSessionRetentionDays is how many days to keep
	// EditSession rows stuck in the failed status before deletion.
	FailedEditSessionRetentionDays int `yaml:"failed_edit_session_retention_days"`

	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		AnalysisCacheTTL:               7 * 24 * time.Hour,
		TrafficSnapshotRetentionDays:   400,
		FailedEditSessionRetentionDays: 30,
		CleanupInterval:                6 * time.Hour,
	}
}
