package aifixer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/seocore/seocore/pkg/llmclient"
)

// llmGenerator is the shared shape for every per-issue generator: build
// a prompt from the input, call the LLM for a JSON-typed response, and
// decode it into a GeneratorOutput.
type llmGenerator struct {
	llm          llmclient.Provider
	systemPrompt string
	build        func(GeneratorInput) string
}

type generatorResponse struct {
	Success        bool    `json:"success"`
	SuggestedValue string  `json:"suggested_value"`
	Explanation    string  `json:"explanation"`
	Confidence     float64 `json:"confidence"`
}

func (g *llmGenerator) Generate(ctx context.Context, input GeneratorInput) (GeneratorOutput, error) {
	userPrompt := g.build(input)
	raw, err := g.llm.GenerateJSON(ctx, g.systemPrompt, userPrompt)
	if err != nil {
		return GeneratorOutput{}, fmt.Errorf("aifixer: generating value: %w", err)
	}
	var resp generatorResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return GeneratorOutput{}, fmt.Errorf("aifixer: parsing generator response: %w", err)
	}
	return GeneratorOutput{
		Success:        resp.Success,
		SuggestedValue: resp.SuggestedValue,
		Explanation:    resp.Explanation,
		Confidence:     resp.Confidence,
	}, nil
}

func renderPastAttempts(attempts []PastAttempt) string {
	if len(attempts) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for i, a := range attempts {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&sb, "- %q (%s)\n", a.FixedValue, a.Effectiveness)
	}
	return sb.String()
}

const titleSystemPrompt = `You rewrite HTML <title> tags for SEO. Respond as JSON: ` +
	`{"success": true, "suggested_value": "", "explanation": "", "confidence": 0.0}. ` +
	`Titles must be 30-60 characters, include the primary keyword near the start, and read naturally for humans.`

// NewTitleGenerator builds the title-tag generator.
func NewTitleGenerator(llm llmclient.Provider) Generator {
	return &llmGenerator{
		llm:          llm,
		systemPrompt: titleSystemPrompt,
		build: func(in GeneratorInput) string {
			return fmt.Sprintf("URL: %s\nCurrent title: %q\nBrand: %s\nContent snippet: %s\nSibling titles on this site:\n%s\nPast attempts:\n%s",
				in.URL, in.CurrentValue, in.Brand, in.ContentSnippet, strings.Join(in.SiblingTitles, "\n"), renderPastAttempts(in.PastAttempts))
		},
	}
}

const descriptionSystemPrompt = `You rewrite HTML meta descriptions for SEO. Respond as JSON: ` +
	`{"success": true, "suggested_value": "", "explanation": "", "confidence": 0.0}. ` +
	`Descriptions must be 70-160 characters, summarize the page's value proposition, and include a call to action where natural.`

// NewDescriptionGenerator builds the meta-description generator.
func NewDescriptionGenerator(llm llmclient.Provider) Generator {
	return &llmGenerator{
		llm:          llm,
		systemPrompt: descriptionSystemPrompt,
		build: func(in GeneratorInput) string {
			return fmt.Sprintf("URL: %s\nCurrent description: %q\nContent snippet: %s\nSearch Console: %d clicks, %d impressions, %.2f%% CTR\nPast attempts:\n%s",
				in.URL, in.CurrentValue, in.ContentSnippet, in.GSCClicks, in.GSCImpressions, in.GSCCTR, renderPastAttempts(in.PastAttempts))
		},
	}
}

const h1SystemPrompt = `You rewrite a page's single <h1> heading for SEO and readability. Respond as JSON: ` +
	`{"success": true, "suggested_value": "", "explanation": "", "confidence": 0.0}.`

// NewH1Generator builds the H1-heading generator.
func NewH1Generator(llm llmclient.Provider) Generator {
	return &llmGenerator{
		llm:          llm,
		systemPrompt: h1SystemPrompt,
		build: func(in GeneratorInput) string {
			return fmt.Sprintf("URL: %s\nCurrent H1: %q\nContent snippet: %s", in.URL, in.CurrentValue, in.ContentSnippet)
		},
	}
}

const contentSystemPrompt = `You propose an expanded content excerpt to fix thin content. Respond as JSON: ` +
	`{"success": true, "suggested_value": "", "explanation": "", "confidence": 0.0}. ` +
	`suggested_value must be a paragraph of at least 120 words expanding on the existing content snippet's topic.`

// NewContentGenerator builds the thin-content expansion generator.
func NewContentGenerator(llm llmclient.Provider) Generator {
	return &llmGenerator{
		llm:          llm,
		systemPrompt: contentSystemPrompt,
		build: func(in GeneratorInput) string {
			return fmt.Sprintf("URL: %s\nExisting content: %s", in.URL, in.ContentSnippet)
		},
	}
}

const altTextSystemPrompt = `You write concise, descriptive alt text for an image on a web page. Respond as JSON: ` +
	`{"success": true, "suggested_value": "", "explanation": "", "confidence": 0.0}. ` +
	`suggested_value must describe the image's content and purpose in under 125 characters, never "image of" or "picture of".`

// NewAltTextGenerator builds the image-alt-text generator.
func NewAltTextGenerator(llm llmclient.Provider) Generator {
	return &llmGenerator{
		llm:          llm,
		systemPrompt: altTextSystemPrompt,
		build: func(in GeneratorInput) string {
			return fmt.Sprintf("URL: %s\nPage content snippet (for topical context): %s", in.URL, in.ContentSnippet)
		},
	}
}

const openGraphSystemPrompt = `You write Open Graph meta tags (og:title, og:description) for social sharing. ` +
	`Respond as JSON: {"success": true, "suggested_value": "", "explanation": "", "confidence": 0.0}. ` +
	`suggested_value must be the two tags as literal HTML, one per line: <meta property="og:title" content="...">` +
	` and <meta property="og:description" content="...">. og:title tracks the page title, og:description ` +
	`summarizes the page for a social-media card reader, distinct in tone from the meta description.`

// NewOpenGraphGenerator builds the Open Graph tag generator used for
// IssueOpenGraphIncomplete.
func NewOpenGraphGenerator(llm llmclient.Provider) Generator {
	return &llmGenerator{
		llm:          llm,
		systemPrompt: openGraphSystemPrompt,
		build: func(in GeneratorInput) string {
			return fmt.Sprintf("URL: %s\nCurrent title: %q\nContent snippet: %s\nBrand: %s",
				in.URL, in.CurrentValue, in.ContentSnippet, in.Brand)
		},
	}
}

// BatchGenerator wraps a single-issue Generator to run it over many
// inputs, used by the bulk_fix_title/bulk_fix_description suggestion
// types (§4.9) to generate one value per affected page.
type BatchGenerator struct {
	inner Generator
}

// NewBatchGenerator wraps inner for batch use.
func NewBatchGenerator(inner Generator) *BatchGenerator {
	return &BatchGenerator{inner: inner}
}

// GenerateBatch runs inner.Generate for every input, isolating
// per-item failures (spec.md's per-page-fix isolation convention) so
// one bad generation doesn't drop the whole batch.
func (b *BatchGenerator) GenerateBatch(ctx context.Context, inputs []GeneratorInput) []GeneratorOutput {
	outputs := make([]GeneratorOutput, len(inputs))
	for i, in := range inputs {
		out, err := b.inner.Generate(ctx, in)
		if err != nil {
			outputs[i] = GeneratorOutput{Success: false, Explanation: err.Error()}
			continue
		}
		outputs[i] = out
	}
	return outputs
}
