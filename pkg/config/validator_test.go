package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Database: &DatabaseYAMLConfig{
			Host: "localhost",
			Port: 5432,
			User: "seocore",
			Name: "seocore",
		},
		RateLimits: DefaultRateLimits(),
		Collector:  DefaultCollectorConfig(),
		LLMProviders: map[string]LLMProviderConfig{
			"primary": {Type: LLMProviderTypeGoogle, Model: "gemini-2.0-flash"},
		},
		VectorStore: DefaultVectorStoreConfig(),
	}
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_RejectsMissingDatabaseHost(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""
	assert.Error(t, Validate(cfg))
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Port = 70000
	assert.Error(t, Validate(cfg))
}

func TestValidate_RejectsNoLLMProviders(t *testing.T) {
	cfg := validConfig()
	cfg.LLMProviders = nil
	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least one provider")
}

func TestValidate_RejectsUnknownProviderType(t *testing.T) {
	cfg := validConfig()
	cfg.LLMProviders["primary"] = LLMProviderConfig{Type: "not-a-real-provider", Model: "x"}
	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider type")
}

func TestValidate_RejectsZeroRateLimit(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimits["lighthouse"] = RateLimitConfig{RatePerSecond: 0, MaxConcurrent: 1}
	assert.Error(t, Validate(cfg))
}
