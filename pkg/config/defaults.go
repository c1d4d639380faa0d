package config

import "time"

// DefaultRateLimits returns the built-in rate limits for every kind pkg/ratelimiter
// knows about, applied when config.yaml doesn't override a kind.
func DefaultRateLimits() map[string]RateLimitConfig {
	return map[string]RateLimitConfig{
		string(RateLimitKindLighthouse):    {RatePerSecond: 1, MaxConcurrent: 2, BurstSize: 2},
		string(RateLimitKindSearchConsole): {RatePerSecond: 2, MaxConcurrent: 4, BurstSize: 4},
		string(RateLimitKindLLM):           {RatePerSecond: 2, MaxConcurrent: 4, BurstSize: 8},
		string(RateLimitKindCrawl):         {RatePerSecond: 4, MaxConcurrent: 4, BurstSize: 10},
	}
}

// DefaultCollectorConfig returns the built-in discovery/crawl defaults.
func DefaultCollectorConfig() *CollectorConfig {
	return &CollectorConfig{
		MaxPagesPerDomain: 500,
		MaxCrawlDepth:     2,
		RequestTimeout:    15 * time.Second,
		UserAgent:         "seocore-bot/1.0 (+https://github.com/seocore/seocore)",
	}
}

// DefaultSearchConsoleConfig returns the built-in Search Console client defaults.
func DefaultSearchConsoleConfig() *SearchConsoleConfig {
	return &SearchConsoleConfig{
		CredentialsFile: "",
		RequestTimeout:  90 * time.Second,
	}
}

// DefaultGitConfig returns the built-in deploy-pipeline git defaults.
func DefaultGitConfig() *GitConfig {
	return &GitConfig{
		TokenEnv:          "GIT_TOKEN",
		CloneDepth:        1,
		CommitAuthorName:  "seocore-bot",
		CommitAuthorEmail: "seocore-bot@users.noreply.github.com",
		DefaultBranch:     "main",
		CloneTimeout:      2 * time.Minute,
		WorkspaceRoot:     "/tmp/seocore-deploy",
	}
}

// DefaultVectorStoreConfig returns the built-in vector store defaults.
func DefaultVectorStoreConfig() *VectorStoreConfig {
	return &VectorStoreConfig{
		DataDir:        "./data/vectorstore",
		EmbeddingModel: "text-embedding-004",
		EmbeddingDims:  768,
	}
}

// DefaultSchedulerConfig returns the built-in cron schedule matching the
// named triggers from spec.md §4.12, spread across the day so they don't
// all fire at once.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		GSCSyncMorning:           "15 6 * * *",
		GSCSyncEvening:           "15 18 * * *",
		DailyFullScan:            "0 2 * * *",
		DailyAIAnalysis:          "0 5 * * *",
		VectorEmbeddingUpdate:    "30 5 * * *",
		EvaluateFixEffectiveness: "0 4 * * *",
		DailySnapshot:            "45 23 * * *",
	}
}
