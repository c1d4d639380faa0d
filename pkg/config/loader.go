package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Initialize loads config.yaml (and a sibling .env for secrets), merges it
// with built-in defaults, validates the result, and returns ready-to-use
// configuration.
//
// Steps performed:
//  1. Load .env (secrets: DB_PASSWORD, LLM provider API keys, GIT_TOKEN)
//  2. Load config.yaml, expanding ${VAR} references against the environment
//  3. Merge built-in defaults under the user's YAML (user always wins)
//  4. Validate the merged result with go-playground/validator
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to load .env file", "path", envPath, "error", err)
	}

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized",
		"llm_providers", stats.LLMProviders,
		"rate_limits", stats.RateLimits)

	return cfg, nil
}

func load(configDir string) (*Config, error) {
	var yamlCfg SeoCoreYAMLConfig
	if err := loadYAML(configDir, "config.yaml", &yamlCfg); err != nil {
		return nil, NewLoadError("config.yaml", err)
	}

	rateLimits := DefaultRateLimits()
	if err := mergo.Merge(&rateLimits, yamlCfg.RateLimits, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge rate_limits: %w", err)
	}

	collector := DefaultCollectorConfig()
	if yamlCfg.Collector != nil {
		if err := mergo.Merge(collector, yamlCfg.Collector, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge collector config: %w", err)
		}
	}

	git := DefaultGitConfig()
	if yamlCfg.Git != nil {
		if err := mergo.Merge(git, yamlCfg.Git, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge git config: %w", err)
		}
	}

	searchConsole := DefaultSearchConsoleConfig()
	if yamlCfg.SearchConsole != nil {
		if err := mergo.Merge(searchConsole, yamlCfg.SearchConsole, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge search_console config: %w", err)
		}
	}

	vectorStore := DefaultVectorStoreConfig()
	if yamlCfg.VectorStore != nil {
		if err := mergo.Merge(vectorStore, yamlCfg.VectorStore, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge vector_store config: %w", err)
		}
	}

	scheduler := DefaultSchedulerConfig()
	if yamlCfg.Scheduler != nil {
		if err := mergo.Merge(scheduler, yamlCfg.Scheduler, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge scheduler config: %w", err)
		}
	}

	retention := DefaultRetentionConfig()
	if yamlCfg.Retention != nil {
		if err := mergo.Merge(retention, yamlCfg.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	queue := DefaultQueueConfig()
	if yamlCfg.Queue != nil {
		if err := mergo.Merge(queue, yamlCfg.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	llmProviders := make(map[string]LLMProviderConfig, len(yamlCfg.LLMProviders))
	for name, p := range yamlCfg.LLMProviders {
		llmProviders[name] = p
	}

	return &Config{
		configDir:     configDir,
		Database:      yamlCfg.Database,
		RateLimits:    rateLimits,
		Collector:     collector,
		Git:           git,
		SearchConsole: searchConsole,
		LLMProviders:  llmProviders,
		VectorStore:   vectorStore,
		Scheduler:     scheduler,
		Retention:     retention,
		Queue:         queue,
	}, nil
}

func loadYAML(configDir, filename string, target any) error {
	path := filepath.Join(configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}
