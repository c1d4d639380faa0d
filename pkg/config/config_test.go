package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testConfig() *Config {
	return &Config{
		configDir: "/test/config",
		Database: &DatabaseYAMLConfig{
			Host: "localhost",
			Port: 5432,
			User: "seocore",
			Name: "seocore",
		},
		RateLimits: map[string]RateLimitConfig{
			string(RateLimitKindLighthouse): {RatePerSecond: 1, MaxConcurrent: 2},
		},
		LLMProviders: map[string]LLMProviderConfig{
			"primary": {Type: LLMProviderTypeGoogle, Model: "gemini-2.0-flash"},
		},
	}
}

func TestConfigDir(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "/test/config", cfg.ConfigDir())
}

func TestConfig_GetLLMProvider(t *testing.T) {
	cfg := testConfig()

	t.Run("found", func(t *testing.T) {
		p, err := cfg.GetLLMProvider("primary")
		assert.NoError(t, err)
		assert.Equal(t, "gemini-2.0-flash", p.Model)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := cfg.GetLLMProvider("nonexistent")
		assert.ErrorIs(t, err, ErrLLMProviderNotFound)
	})
}

func TestConfig_GetRateLimit(t *testing.T) {
	cfg := testConfig()

	t.Run("found", func(t *testing.T) {
		rl, ok := cfg.GetRateLimit(RateLimitKindLighthouse)
		assert.True(t, ok)
		assert.Equal(t, 2, rl.MaxConcurrent)
	})

	t.Run("not configured", func(t *testing.T) {
		_, ok := cfg.GetRateLimit(RateLimitKindCrawl)
		assert.False(t, ok)
	})
}

func TestConfigStats(t *testing.T) {
	cfg := testConfig()
	stats := cfg.Stats()
	assert.Equal(t, 1, stats.LLMProviders)
	assert.Equal(t, 1, stats.RateLimits)
}
