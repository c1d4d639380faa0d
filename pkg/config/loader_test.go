package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
database:
  host: localhost
  port: 5432
  user: seocore
  name: seocore

rate_limits:
  lighthouse:
    rate_per_second: 5
    max_concurrent: 10

llm_providers:
  primary:
    type: google
    model: gemini-2.0-flash
    api_key_env: GOOGLE_API_KEY
`

func writeTestConfig(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(contents), 0o644))
}

func TestInitialize_LoadsAndMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeTestConfig(t, dir, testConfigYAML)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)

	// user-supplied rate limit overrides the built-in default
	rl, ok := cfg.GetRateLimit(RateLimitKindLighthouse)
	require.True(t, ok)
	assert.Equal(t, 10, rl.MaxConcurrent)

	// kinds the user didn't mention still carry built-in defaults
	crawl, ok := cfg.GetRateLimit(RateLimitKindCrawl)
	require.True(t, ok)
	assert.Greater(t, crawl.MaxConcurrent, 0)

	// sections absent from config.yaml entirely still resolve to defaults
	assert.NotNil(t, cfg.Collector)
	assert.Equal(t, DefaultCollectorConfig().MaxCrawlDepth, cfg.Collector.MaxCrawlDepth)
	assert.NotNil(t, cfg.Scheduler)
	assert.NotNil(t, cfg.Retention)
	assert.NotNil(t, cfg.Queue)

	p, err := cfg.GetLLMProvider("primary")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", p.Model)
}

func TestInitialize_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SEOCORE_TEST_DB_HOST", "db.internal")
	writeTestConfig(t, dir, `
database:
  host: ${SEOCORE_TEST_DB_HOST}
  port: 5432
  user: seocore
  name: seocore

llm_providers:
  primary:
    type: google
    model: gemini-2.0-flash
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestInitialize_MissingConfigFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Initialize(context.Background(), dir)
	assert.Error(t, err)
}

func TestInitialize_ValidationFailureSurfaces(t *testing.T) {
	dir := t.TempDir()
	writeTestConfig(t, dir, `
database:
  host: localhost
  port: 5432
  user: seocore
  name: seocore
`)

	_, err := Initialize(context.Background(), dir)
	assert.ErrorIs(t, err, ErrValidationFailed)
}
