package knowledge

import (
	"fmt"
	"sort"
	"strings"
)

// Render produces the compact text form of ctx consumed by §4.8's
// LLM prompts — the knowledge-builder analogue of the teacher's
// stage-context formatter: section headers inside HTML comment
// boundaries, one paragraph per concern.
func Render(ctx *Context) string {
	var sb strings.Builder
	sb.WriteString("<!-- DOMAIN_CONTEXT_START -->\n\n")

	renderOverview(&sb, ctx.Domain)
	renderURLStructure(&sb, ctx.URLStructure)
	renderContentTypes(&sb, ctx.ContentTypes)
	renderHealth(&sb, ctx.Health)
	renderKeywords(&sb, ctx.Keywords)
	renderOpportunities(&sb, ctx.Opportunities)

	sb.WriteString("<!-- DOMAIN_CONTEXT_END -->")
	return sb.String()
}

func renderOverview(sb *strings.Builder, o DomainOverview) {
	sb.WriteString("### Domain Overview\n\n")
	gsc := "not connected"
	if o.GSCConnected {
		gsc = "connected"
	}
	lastScan := o.LastFullScanAt
	if lastScan == "" {
		lastScan = "never"
	}
	fmt.Fprintf(sb, "%s has %d pages (%d active). Average scores: SEO %.1f, performance %.1f, accessibility %.1f. "+
		"Health score %d/100. %d open issues. Search Console %s. Last full scan: %s.\n\n",
		o.Hostname, o.TotalPages, o.ActivePages, o.AvgSEOScore, o.AvgPerformance, o.AvgAccessibility,
		o.HealthScore, o.OpenIssueCount, gsc, lastScan)
}

func renderURLStructure(sb *strings.Builder, s URLStructure) {
	sb.WriteString("### URL Structure\n\n")
	depths := make([]int, 0, len(s.DepthHistogram))
	for d := range s.DepthHistogram {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	for _, d := range depths {
		fmt.Fprintf(sb, "- depth %d: %d pages\n", d, s.DepthHistogram[d])
	}
	prefixes := make([]string, 0, len(s.PathPrefixHistogram))
	for p := range s.PathPrefixHistogram {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return s.PathPrefixHistogram[prefixes[i]] > s.PathPrefixHistogram[prefixes[j]] })
	for i, p := range prefixes {
		if i >= 10 {
			break
		}
		fmt.Fprintf(sb, "- prefix %s: %d pages\n", p, s.PathPrefixHistogram[p])
	}
	fmt.Fprintf(sb, "- orphaned pages (no detected parent): %d\n\n", s.OrphanCount)
}

func renderContentTypes(sb *strings.Builder, buckets []ContentTypeBucket) {
	if len(buckets) == 0 {
		return
	}
	sb.WriteString("### Content Types\n\n")
	for _, b := range buckets {
		fmt.Fprintf(sb, "- %s (%d pages): recommended priority %d, changefreq %s\n",
			b.Label, b.PageCount, b.RecommendedPrio, b.RecommendedFreq)
	}
	sb.WriteString("\n")
}

func renderHealth(sb *strings.Builder, h SEOHealth) {
	sb.WriteString("### SEO Health\n\n")
	counts := make(map[string]int, len(h.IssuesByType))
	types := make([]string, 0, len(h.IssuesByType))
	for t, c := range h.IssuesByType {
		s := string(t)
		types = append(types, s)
		counts[s] = c
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(sb, "- %s: %d occurrences\n", t, counts[t])
	}
	sb.WriteString("\nTop problem pages:\n")
	for _, p := range h.TopProblemPages {
		fmt.Fprintf(sb, "- %s: %d open issues\n", p.URL, p.IssueCount)
	}
	sb.WriteString("\nScore distribution: ")
	for _, bucket := range []string{"0-40", "40-70", "70-90", "90-100"} {
		fmt.Fprintf(sb, "%s=%d ", bucket, h.ScoreDistribution[bucket])
	}
	sb.WriteString("\n\n")
}

func renderKeywords(sb *strings.Builder, k KeywordInsights) {
	sb.WriteString("### Keyword Insights\n\n")
	for i, q := range k.TopQueries {
		if i >= 15 {
			break
		}
		fmt.Fprintf(sb, "- %q: %d clicks, %d impressions, on %d page(s)\n", q.Query, q.TotalClicks, q.TotalImpr, q.PageCount)
	}
	if len(k.Cannibalized) > 0 {
		sb.WriteString("\nKeyword cannibalisation (same query, multiple pages):\n")
		for _, q := range k.Cannibalized {
			fmt.Fprintf(sb, "- %q appears on: %s\n", q.Query, strings.Join(q.Pages, ", "))
		}
	}
	sb.WriteString("\n")
}

func renderOpportunities(sb *strings.Builder, opps []Opportunity) {
	sb.WriteString("### Improvement Opportunities\n\n")
	for _, o := range opps {
		fmt.Fprintf(sb, "- [%s] %s (%s): %s\n", strings.ToUpper(string(o.Urgency)), o.Title, o.AffectedURL, o.Description)
	}
	sb.WriteString("\n")
}
