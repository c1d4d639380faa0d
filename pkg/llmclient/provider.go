// Package llmclient defines a provider-agnostic interface over the LLM
// calls the AI analysis engine (pkg/aianalysis) and AI fixer
// (pkg/aifixer) need — a single JSON-typed generation call plus text
// embedding — and a default implementation against Google's GenAI SDK.
package llmclient

import "context"

// Provider is the surface pkg/aianalysis and pkg/aifixer depend on.
// Swapping providers (OpenAI, Anthropic, Vertex AI) means implementing
// this interface, never touching the callers.
type Provider interface {
	// GenerateJSON sends a system instruction and user prompt and
	// returns the raw JSON text of the model's response.
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// Embed returns the embedding vector for text, used by
	// pkg/vectorstore's Embedder contract.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Model reports the configured model identifier, recorded on
	// AIFixHistory.ModelID and AIAnalysisCache entries.
	Model() string
}
