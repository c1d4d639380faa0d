package config

// Config is the fully resolved, validated configuration object returned
// by Initialize and threaded through cmd/seocored's wiring.
type Config struct {
	configDir string

	Database      *DatabaseYAMLConfig
	RateLimits    map[string]RateLimitConfig
	Collector     *CollectorConfig
	Git           *GitConfig
	SearchConsole *SearchConsoleConfig
	LLMProviders  map[string]LLMProviderConfig
	VectorStore   *VectorStoreConfig
	Scheduler     *SchedulerConfig
	Retention     *RetentionConfig
	Queue         *QueueConfig
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetLLMProvider retrieves an LLM provider configuration by name.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	p, ok := c.LLMProviders[name]
	if !ok {
		return nil, ErrLLMProviderNotFound
	}
	return &p, nil
}

// GetRateLimit retrieves the rate limit configuration for a kind, falling
// back to the built-in default for that kind if config.yaml didn't
// override it (both maps are always merged at load time, so this should
// only ever fall through for an unrecognized kind).
func (c *Config) GetRateLimit(kind RateLimitKind) (RateLimitConfig, bool) {
	rl, ok := c.RateLimits[string(kind)]
	return rl, ok
}

// ConfigStats summarizes loaded configuration for startup logging.
type ConfigStats struct {
	LLMProviders int
	RateLimits   int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		LLMProviders: len(c.LLMProviders),
		RateLimits:   len(c.RateLimits),
	}
}
