package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLLMProviderType_IsValid(t *testing.T) {
	assert.True(t, LLMProviderTypeGoogle.IsValid())
	assert.True(t, LLMProviderTypeOpenAI.IsValid())
	assert.True(t, LLMProviderTypeAnthropic.IsValid())
	assert.True(t, LLMProviderTypeVertexAI.IsValid())
	assert.False(t, LLMProviderType("bogus").IsValid())
}

func TestDefaultRateLimits_CoversEveryKind(t *testing.T) {
	rl := DefaultRateLimits()
	for _, kind := range []RateLimitKind{
		RateLimitKindLighthouse,
		RateLimitKindSearchConsole,
		RateLimitKindLLM,
		RateLimitKindCrawl,
	} {
		cfg, ok := rl[string(kind)]
		assert.True(t, ok, "missing default for %s", kind)
		assert.Greater(t, cfg.RatePerSecond, 0.0)
		assert.Greater(t, cfg.MaxConcurrent, 0)
	}
}

func TestDefaultCollectorConfig(t *testing.T) {
	c := DefaultCollectorConfig()
	assert.Greater(t, c.MaxPagesPerDomain, 0)
	assert.Greater(t, c.MaxCrawlDepth, 0)
	assert.NotEmpty(t, c.UserAgent)
}

func TestDefaultGitConfig(t *testing.T) {
	g := DefaultGitConfig()
	assert.Equal(t, "main", g.DefaultBranch)
	assert.Greater(t, g.CloneDepth, 0)
}

func TestDefaultVectorStoreConfig(t *testing.T) {
	v := DefaultVectorStoreConfig()
	assert.Greater(t, v.EmbeddingDims, 0)
	assert.NotEmpty(t, v.EmbeddingModel)
}

func TestDefaultSchedulerConfig_AllTriggersSet(t *testing.T) {
	s := DefaultSchedulerConfig()
	assert.NotEmpty(t, s.GSCSyncMorning)
	assert.NotEmpty(t, s.GSCSyncEvening)
	assert.NotEmpty(t, s.DailyFullScan)
	assert.NotEmpty(t, s.DailyAIAnalysis)
	assert.NotEmpty(t, s.VectorEmbeddingUpdate)
	assert.NotEmpty(t, s.EvaluateFixEffectiveness)
	assert.NotEmpty(t, s.DailySnapshot)
}

func TestDefaultRetentionConfig(t *testing.T) {
	r := DefaultRetentionConfig()
	assert.Greater(t, r.AnalysisCacheTTL.Seconds(), 0.0)
	assert.Greater(t, r.TrafficSnapshotRetentionDays, 0)
	assert.Greater(t, r.FailedEditSessionRetentionDays, 0)
}

func TestDefaultQueueConfig(t *testing.T) {
	q := DefaultQueueConfig()
	assert.Greater(t, q.WorkerCount, 0)
	assert.Greater(t, q.MaxConcurrentJobs, 0)
	assert.Greater(t, q.JobTimeout.Seconds(), 0.0)
}
