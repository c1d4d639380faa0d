package config

import "time"

// DatabaseYAMLConfig configures the PostgreSQL connection. The password
// itself is never read from YAML — it comes from the DB_PASSWORD
// environment variable (see pkg/database.LoadConfigFromEnv), consistent
// with keeping secrets out of the committed config file.
type DatabaseYAMLConfig struct {
	Host            string        `yaml:"host" validate:"required"`
	Port            int           `yaml:"port" validate:"required,min=1,max=65535"`
	User            string        `yaml:"user" validate:"required"`
	Name            string        `yaml:"name" validate:"required"`
	SSLMode         string        `yaml:"sslmode,omitempty"`
	MaxOpenConns    int           `yaml:"max_open_conns,omitempty" validate:"omitempty,min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns,omitempty" validate:"omitempty,min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time,omitempty"`
}

// RateLimitConfig mirrors pkg/ratelimiter.Config with YAML tags; the
// loader converts one of these per configured kind into a
// ratelimiter.Config when building the ratelimiter.Registry.
type RateLimitConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second" validate:"required,gt=0"`
	MaxConcurrent int     `yaml:"max_concurrent" validate:"required,min=1"`
	BurstSize     int     `yaml:"burst_size,omitempty" validate:"omitempty,min=1"`
}

// CollectorConfig controls C2/C3 data collection (pkg/discovery, pkg/collector).
type CollectorConfig struct {
	MaxPagesPerDomain int           `yaml:"max_pages_per_domain,omitempty" validate:"omitempty,min=1"`
	MaxCrawlDepth     int           `yaml:"max_crawl_depth,omitempty" validate:"omitempty,min=1"`
	RequestTimeout    time.Duration `yaml:"request_timeout,omitempty"`
	UserAgent         string        `yaml:"user_agent,omitempty"`
}

// GitConfig controls how pkg/deploy clones and commits to a site's repo.
type GitConfig struct {
	TokenEnv           string        `yaml:"token_env,omitempty"`
	CloneDepth         int           `yaml:"clone_depth,omitempty" validate:"omitempty,min=1"`
	CommitAuthorName   string        `yaml:"commit_author_name,omitempty"`
	CommitAuthorEmail  string        `yaml:"commit_author_email,omitempty"`
	DefaultBranch      string        `yaml:"default_branch,omitempty"`
	CloneTimeout       time.Duration `yaml:"clone_timeout,omitempty"`
	WorkspaceRoot      string        `yaml:"workspace_root,omitempty"`
}

// SearchConsoleConfig controls how pkg/searchconsole authenticates against
// the Google Search Console API.
type SearchConsoleConfig struct {
	CredentialsFile string `yaml:"credentials_file,omitempty"`
	RequestTimeout  time.Duration `yaml:"request_timeout,omitempty"`
}

// LLMProviderConfig defines one LLM provider pkg/llmclient can dispatch to.
type LLMProviderConfig struct {
	Type            LLMProviderType `yaml:"type" validate:"required"`
	Model           string          `yaml:"model" validate:"required"`
	APIKeyEnv       string          `yaml:"api_key_env,omitempty"`
	ProjectEnv      string          `yaml:"project_env,omitempty"`
	LocationEnv     string          `yaml:"location_env,omitempty"`
	BaseURL         string          `yaml:"base_url,omitempty"`
	MaxOutputTokens int             `yaml:"max_output_tokens,omitempty" validate:"omitempty,min=256"`
	Timeout         time.Duration   `yaml:"timeout,omitempty"`
}

// VectorStoreConfig controls pkg/vectorstore's embedded SQLite database.
type VectorStoreConfig struct {
	DataDir          string `yaml:"data_dir,omitempty"`
	EmbeddingModel   string `yaml:"embedding_model,omitempty"`
	EmbeddingDims    int    `yaml:"embedding_dims,omitempty" validate:"omitempty,min=1"`
}

// SchedulerConfig holds the named cron triggers from spec.md §4.12. Each
// is a standard five-field cron expression understood by robfig/cron/v3;
// empty means "disabled". GSC sync fires twice daily (morning/evening)
// but both entries enqueue the same lightweight-refresh job type.
type SchedulerConfig struct {
	GSCSyncMorning           string `yaml:"gsc_sync_morning,omitempty"`
	GSCSyncEvening           string `yaml:"gsc_sync_evening,omitempty"`
	DailyFullScan            string `yaml:"daily_full_scan,omitempty"`
	DailyAIAnalysis          string `yaml:"daily_ai_analysis,omitempty"`
	VectorEmbeddingUpdate    string `yaml:"vector_embedding_update,omitempty"`
	EvaluateFixEffectiveness string `yaml:"evaluate_fix_effectiveness,omitempty"`
	DailySnapshot            string `yaml:"daily_snapshot,omitempty"`
}

// SeoCoreYAMLConfig is the root of config.yaml.
type SeoCoreYAMLConfig struct {
	Database     *DatabaseYAMLConfig        `yaml:"database"`
	RateLimits   map[string]RateLimitConfig `yaml:"rate_limits"`
	Collector     *CollectorConfig           `yaml:"collector"`
	SearchConsole *SearchConsoleConfig       `yaml:"search_console"`
	Git          *GitConfig                 `yaml:"git"`
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
	VectorStore  *VectorStoreConfig         `yaml:"vector_store"`
	Scheduler    *SchedulerConfig           `yaml:"scheduler"`
	Retention    *RetentionConfig           `yaml:"retention"`
	Queue        *QueueConfig               `yaml:"queue"`
}
