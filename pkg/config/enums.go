package config

// LLMProviderType defines supported LLM providers.
type LLMProviderType string

const (
	LLMProviderTypeGoogle    LLMProviderType = "google"
	LLMProviderTypeOpenAI    LLMProviderType = "openai"
	LLMProviderTypeAnthropic LLMProviderType = "anthropic"
	LLMProviderTypeVertexAI  LLMProviderType = "vertexai"
)

// IsValid checks if the LLM provider type is valid.
func (t LLMProviderType) IsValid() bool {
	switch t {
	case LLMProviderTypeGoogle, LLMProviderTypeOpenAI, LLMProviderTypeAnthropic, LLMProviderTypeVertexAI:
		return true
	default:
		return false
	}
}

// RateLimitKind names the external call classes pkg/ratelimiter paces.
type RateLimitKind string

const (
	RateLimitKindLighthouse    RateLimitKind = "lighthouse"
	RateLimitKindSearchConsole RateLimitKind = "search_console"
	RateLimitKindLLM           RateLimitKind = "llm"
	RateLimitKindCrawl         RateLimitKind = "crawl"
)
