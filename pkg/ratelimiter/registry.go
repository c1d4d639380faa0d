package ratelimiter

import "sync"

// Kind identifies which external API a limiter paces. Each kind gets its
// own bucket: the PageSpeed quota and the Search Console quota are
// independent of each other and of the LLM provider's.
type Kind string

const (
	KindLighthouse     Kind = "lighthouse"
	KindSearchConsole  Kind = "search_console"
	KindLLM            Kind = "llm"
	KindCrawl          Kind = "crawl"
)

// Config holds the construction parameters for one Kind's limiter.
type Config struct {
	RatePerSecond float64
	MaxConcurrent int
	BurstSize     int // 0 disables bursting and yields a plain Limiter
}

// Registry lazily builds and caches one limiter per Kind so every
// caller in the process shares the same bucket for a given API.
type Registry struct {
	mu       sync.Mutex
	configs  map[Kind]Config
	limiters map[Kind]any
}

// NewRegistry builds a Registry seeded with the given per-kind configs.
// Kinds not present in configs fall back to DefaultConfig on first use.
func NewRegistry(configs map[Kind]Config) *Registry {
	cp := make(map[Kind]Config, len(configs))
	for k, v := range configs {
		cp[k] = v
	}
	return &Registry{
		configs:  cp,
		limiters: make(map[Kind]any),
	}
}

// DefaultConfig mirrors the conservative defaults used for unconfigured kinds.
var DefaultConfig = Config{RatePerSecond: 4, MaxConcurrent: 4, BurstSize: 10}

// Limiter returns the plain Limiter for kind, constructing it on first
// use. Panics if kind was configured with a BurstSize > 0 — use Batch instead.
func (r *Registry) Limiter(kind Kind) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.limiters[kind]; ok {
		return existing.(*Limiter)
	}
	cfg := r.configFor(kind)
	l := New(cfg.RatePerSecond, cfg.MaxConcurrent)
	r.limiters[kind] = l
	return l
}

// Batch returns the BatchLimiter for kind, constructing it on first use.
func (r *Registry) Batch(kind Kind) *BatchLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.limiters[kind]; ok {
		return existing.(*BatchLimiter)
	}
	cfg := r.configFor(kind)
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = DefaultConfig.BurstSize
	}
	l := NewBatch(cfg.RatePerSecond, cfg.MaxConcurrent, cfg.BurstSize)
	r.limiters[kind] = l
	return l
}

func (r *Registry) configFor(kind Kind) Config {
	if cfg, ok := r.configs[kind]; ok {
		return cfg
	}
	return DefaultConfig
}

// Reset drops all constructed limiters, closing them first. Intended
// for test teardown between cases that assert on limiter timing.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.limiters {
		switch lim := l.(type) {
		case *Limiter:
			lim.Close()
		case *BatchLimiter:
			lim.Close()
		}
	}
	r.limiters = make(map[Kind]any)
}
