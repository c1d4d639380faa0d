package config

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate runs struct-tag validation over every section of cfg and
// performs the handful of cross-field checks a struct tag can't express
// (at least one LLM provider configured, enum fields hold known values).
func Validate(cfg *Config) error {
	v := getValidator()

	if cfg.Database != nil {
		if err := v.Struct(cfg.Database); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	for kind, rl := range cfg.RateLimits {
		if err := v.Struct(rl); err != nil {
			return fmt.Errorf("rate_limits.%s: %w", kind, err)
		}
	}

	if cfg.Collector != nil {
		if err := v.Struct(cfg.Collector); err != nil {
			return fmt.Errorf("collector: %w", err)
		}
	}

	if len(cfg.LLMProviders) == 0 {
		return fmt.Errorf("llm_providers: at least one provider must be configured")
	}
	for name, p := range cfg.LLMProviders {
		if err := v.Struct(p); err != nil {
			return fmt.Errorf("llm_providers.%s: %w", name, err)
		}
		if !p.Type.IsValid() {
			return fmt.Errorf("llm_providers.%s: unknown provider type %q", name, p.Type)
		}
	}

	if cfg.VectorStore != nil {
		if err := v.Struct(cfg.VectorStore); err != nil {
			return fmt.Errorf("vector_store: %w", err)
		}
	}

	return nil
}
