package llmclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	embeddingModelDefault      = "gemini-embedding-001"
	embeddingOutputDimensions  = 768
	maxAttempts                = 3
	retryBaseDelay             = 2 * time.Second
)

// GenAIProvider implements Provider against Google's genai SDK. Its
// Embed method is grounded directly on the pack's GenAI embedding
// engine; GenerateJSON is the generation-side counterpart, using the
// same client with a JSON-mode generation config.
type GenAIProvider struct {
	client         *genai.Client
	model          string
	embeddingModel string
	maxOutputTokens int32
}

// NewGenAIProvider creates a client against apiKey. model is the
// generation model (e.g. "gemini-2.0-flash"); embeddingModel defaults
// to "gemini-embedding-001" when empty.
func NewGenAIProvider(ctx context.Context, apiKey, model, embeddingModel string, maxOutputTokens int) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llmclient: GenAI API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("llmclient: model is required")
	}
	if embeddingModel == "" {
		embeddingModel = embeddingModelDefault
	}
	if maxOutputTokens <= 0 {
		maxOutputTokens = 8192
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("llmclient: creating GenAI client: %w", err)
	}

	return &GenAIProvider{
		client:          client,
		model:           model,
		embeddingModel:  embeddingModel,
		maxOutputTokens: int32(maxOutputTokens),
	}, nil
}

// Model returns the configured generation model identifier.
func (p *GenAIProvider) Model() string { return p.model }

// GenerateJSON issues a single JSON-typed generation request, retrying
// transient failures the same way pkg/lighthouse and pkg/searchconsole
// do: a handful of attempts with exponential backoff, 4xx short-circuits.
func (p *GenAIProvider) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryBaseDelay * time.Duration(1<<uint(attempt-1))):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
		if err != nil {
			lastErr = err
			if isNonRetryable(err) {
				return "", fmt.Errorf("llmclient: generate content: %w", err)
			}
			continue
		}

		text := extractText(result)
		if strings.TrimSpace(text) == "" {
			lastErr = fmt.Errorf("llmclient: empty response")
			continue
		}
		return text, nil
	}
	return "", fmt.Errorf("llmclient: generate content failed after %d attempts: %w", maxAttempts, lastErr)
}

func extractText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func isNonRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "invalid") || strings.Contains(msg, "400") || strings.Contains(msg, "401") || strings.Contains(msg, "403")
}

// Embed generates a single embedding, grounded directly on the pack's
// GenAIEngine.Embed (same EmbedContent call, single-text content list,
// output dimensionality pinned for a stable vectorstore schema).
func (p *GenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	dims := int32(embeddingOutputDimensions)

	result, err := p.client.Models.EmbedContent(ctx, p.embeddingModel, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("llmclient: embed content: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("llmclient: no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}
