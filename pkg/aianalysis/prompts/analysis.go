// Package prompts holds versioned prompt templates for the AI analysis
// engine (pkg/aianalysis). The version string is folded into
// AIAnalysisCache's context hash so editing a template here
// invalidates stale cache entries without a schema migration.
package prompts

import (
	"fmt"
	"strings"
)

// FullAnalysisVersion identifies the current full-domain-analysis
// prompt. Bump this whenever the template below changes meaning.
const FullAnalysisVersion = "full-analysis-v1"

// FullAnalysisSystemInstruction enforces the strict suggestion
// taxonomy from spec.md §4.8 step 5: top-priorities and quick-wins are
// site-wide only, page-level findings must go into page_suggestions.
const FullAnalysisSystemInstruction = `You are an SEO analysis engine. You receive structured domain context, ` +
	`retrieved historical knowledge, learned fix patterns, and a list of live page URLs. ` +
	`Respond with a single JSON object matching this shape exactly:
{
  "top_priorities": [{"title": "", "description": "", "priority": 1, "affected_page": "", "expected_impact": ""}],
  "quick_wins": [{"title": "", "description": "", "sub_type": "", "affected_page": "", "expected_impact": ""}],
  "page_suggestions": [{"page_url": "", "type": "", "title": "", "description": "", "priority": 1, "action_data": {}}],
  "strategy_summary": ""
}

Rules:
- top_priorities and quick_wins are SITE-WIDE only. Never put a single-page fix there — route it to page_suggestions.
- Every suggestion must name a specific, concrete action. Never use vague counts like "there are N issues" without naming the keyword, field, or page.
- Respect the content-type norms given in the context for recommended priority and changefreq.
- If the context states Search Console is already connected, never suggest connecting it.
- page_suggestions entries must reference one of the provided live page URLs in page_url.`

// BuildFullAnalysisUserPrompt assembles the user-turn prompt from the
// four retrieval artefacts spec.md §4.8 step 5 requires.
func BuildFullAnalysisUserPrompt(domainContext, retrievalContext, learnedPatterns string, livePageURLs []string) string {
	var sb strings.Builder
	sb.WriteString("## Domain Context\n\n")
	sb.WriteString(domainContext)
	sb.WriteString("\n\n## Retrieved Knowledge\n\n")
	sb.WriteString(retrievalContext)
	sb.WriteString("\n\n## Learned Fix Patterns\n\n")
	sb.WriteString(learnedPatterns)
	sb.WriteString("\n\n## Live Pages\n\n")
	for _, url := range livePageURLs {
		fmt.Fprintf(&sb, "- %s\n", url)
	}
	return sb.String()
}
