package knowledge

import (
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/models"
)

// contentTypePattern pairs a URL-path heuristic with the priority/
// changefreq norms spec.md §4.7 says suggestions for that content type
// should respect.
type contentTypePattern struct {
	label   string
	match   func(path string) bool
	prio    models.SuggestionPriority
	freq    models.ChangeFreq
}

var contentTypePatterns = []contentTypePattern{
	{"Homepage", func(p string) bool { return p == "/" }, models.PriorityHigh, models.ChangeFreqDaily},
	{"Blog post", func(p string) bool { return strings.Contains(p, "/blog/") || strings.Contains(p, "/posts/") }, models.PriorityMedium, models.ChangeFreqWeekly},
	{"Product page", func(p string) bool { return strings.Contains(p, "/product") || strings.Contains(p, "/shop/") }, models.PriorityHigh, models.ChangeFreqWeekly},
	{"Category/listing", func(p string) bool { return strings.Contains(p, "/category/") || strings.Contains(p, "/tag/") }, models.PriorityMedium, models.ChangeFreqWeekly},
	{"Legal/static", func(p string) bool { return strings.Contains(p, "/legal") || strings.Contains(p, "/privacy") || strings.Contains(p, "/terms") }, models.PriorityLow, models.ChangeFreqYearly},
}

// Builder transforms a domain's rows into a Context.
type Builder struct {
	db *gorm.DB
}

// New builds a Builder over db.
func New(db *gorm.DB) *Builder {
	return &Builder{db: db}
}

// Build loads everything needed for domainID and returns both the
// structured Context and its compact text rendering, the pair spec.md
// §4.8 step 1 feeds to the AI analysis engine.
func (b *Builder) Build(domainID uint) (*Context, string, error) {
	var domain models.Domain
	if err := b.db.First(&domain, domainID).Error; err != nil {
		return nil, "", err
	}

	var pages []models.Page
	if err := b.db.Where("domain_id = ?", domainID).Find(&pages).Error; err != nil {
		return nil, "", err
	}

	var issues []models.SEOIssue
	pageIDs := make([]uint, len(pages))
	pageByID := make(map[uint]models.Page, len(pages))
	for i, p := range pages {
		pageIDs[i] = p.ID
		pageByID[p.ID] = p
	}
	if len(pageIDs) > 0 {
		if err := b.db.Where("page_id IN ? AND status IN ?", pageIDs, models.OpenStatuses).Find(&issues).Error; err != nil {
			return nil, "", err
		}
	}

	latestSnapshots, err := b.latestSnapshotsByPage(pageIDs)
	if err != nil {
		return nil, "", err
	}

	ctx := &Context{
		Domain:        buildOverview(domain, pages, issues),
		URLStructure:  buildURLStructure(pages),
		ContentTypes:  buildContentTypes(pages),
		Health:        buildHealth(issues, pageByID, latestSnapshots),
		Keywords:      buildKeywordInsights(latestSnapshots, pageByID),
		Opportunities: buildOpportunities(issues, pageByID),
	}

	return ctx, Render(ctx), nil
}

func (b *Builder) latestSnapshotsByPage(pageIDs []uint) (map[uint]models.SEOMetricsSnapshot, error) {
	result := make(map[uint]models.SEOMetricsSnapshot, len(pageIDs))
	if len(pageIDs) == 0 {
		return result, nil
	}

	type row struct {
		PageID uint
		MaxTS  string
	}
	var latest []row
	if err := b.db.Table("seo_metrics_snapshots").
		Select("page_id, MAX(timestamp) as max_ts").
		Where("page_id IN ?", pageIDs).
		Group("page_id").
		Scan(&latest).Error; err != nil {
		return nil, err
	}

	for _, r := range latest {
		var snap models.SEOMetricsSnapshot
		if err := b.db.Where("page_id = ? AND timestamp = ?", r.PageID, r.MaxTS).First(&snap).Error; err != nil {
			continue
		}
		result[r.PageID] = snap
	}
	return result, nil
}

func buildOverview(domain models.Domain, pages []models.Page, issues []models.SEOIssue) DomainOverview {
	active := 0
	for _, p := range pages {
		if p.IsActive {
			active++
		}
	}
	health := 100 - len(issues)*5
	if health < 0 {
		health = 0
	}
	lastScan := ""
	if domain.LastFullScanAt != nil {
		lastScan = domain.LastFullScanAt.Format("2006-01-02")
	}
	return DomainOverview{
		Hostname:         domain.Hostname,
		TotalPages:       len(pages),
		ActivePages:      active,
		AvgSEOScore:      domain.SEOScore,
		AvgPerformance:   domain.PerformanceScore,
		AvgAccessibility: domain.AccessibilityScore,
		HealthScore:      health,
		GSCConnected:     domain.SearchConsoleSiteURL != "",
		LastFullScanAt:   lastScan,
		OpenIssueCount:   len(issues),
	}
}

func buildURLStructure(pages []models.Page) URLStructure {
	depthHist := make(map[int]int)
	prefixHist := make(map[string]int)
	orphans := 0
	for _, p := range pages {
		depthHist[p.DepthLevel]++
		if p.ParentID == nil && p.Path != "/" {
			orphans++
		}
		segments := strings.SplitN(strings.Trim(p.Path, "/"), "/", 2)
		if segments[0] != "" {
			prefixHist["/"+segments[0]]++
		}
	}
	return URLStructure{DepthHistogram: depthHist, PathPrefixHistogram: prefixHist, OrphanCount: orphans}
}

func buildContentTypes(pages []models.Page) []ContentTypeBucket {
	counts := make(map[string]int, len(contentTypePatterns))
	for _, p := range pages {
		for _, pattern := range contentTypePatterns {
			if pattern.match(p.Path) {
				counts[pattern.label]++
				break
			}
		}
	}
	buckets := make([]ContentTypeBucket, 0, len(contentTypePatterns))
	for _, pattern := range contentTypePatterns {
		if counts[pattern.label] == 0 {
			continue
		}
		buckets = append(buckets, ContentTypeBucket{
			Label:           pattern.label,
			PageCount:       counts[pattern.label],
			RecommendedPrio: pattern.prio,
			RecommendedFreq: pattern.freq,
		})
	}
	return buckets
}

func buildHealth(issues []models.SEOIssue, pageByID map[uint]models.Page, snapshots map[uint]models.SEOMetricsSnapshot) SEOHealth {
	byType := make(map[models.IssueType]int)
	issueCountByPage := make(map[uint]int)
	for _, issue := range issues {
		byType[issue.Type]++
		issueCountByPage[issue.PageID]++
	}

	var problems []ProblemPage
	for pageID, count := range issueCountByPage {
		page, ok := pageByID[pageID]
		if !ok {
			continue
		}
		problems = append(problems, ProblemPage{PageID: pageID, URL: page.URL, IssueCount: count})
	}
	sort.Slice(problems, func(i, j int) bool { return problems[i].IssueCount > problems[j].IssueCount })
	if len(problems) > 10 {
		problems = problems[:10]
	}

	dist := map[string]int{"0-40": 0, "40-70": 0, "70-90": 0, "90-100": 0}
	for _, snap := range snapshots {
		if snap.ScoreSEO == nil {
			continue
		}
		switch {
		case *snap.ScoreSEO < 40:
			dist["0-40"]++
		case *snap.ScoreSEO < 70:
			dist["40-70"]++
		case *snap.ScoreSEO < 90:
			dist["70-90"]++
		default:
			dist["90-100"]++
		}
	}

	return SEOHealth{IssuesByType: byType, TopProblemPages: problems, ScoreDistribution: dist}
}

func buildKeywordInsights(snapshots map[uint]models.SEOMetricsSnapshot, pageByID map[uint]models.Page) KeywordInsights {
	agg := make(map[string]*QueryInsight)
	for pageID, snap := range snapshots {
		page := pageByID[pageID]
		for _, q := range snap.TopQueries {
			entry, ok := agg[q.Query]
			if !ok {
				entry = &QueryInsight{Query: q.Query}
				agg[q.Query] = entry
			}
			entry.TotalClicks += q.Clicks
			entry.TotalImpr += q.Impressions
			entry.PageCount++
			entry.Pages = append(entry.Pages, page.URL)
		}
	}

	var all []QueryInsight
	var cannibalized []QueryInsight
	for _, entry := range agg {
		all = append(all, *entry)
		if entry.PageCount > 1 {
			cannibalized = append(cannibalized, *entry)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TotalClicks > all[j].TotalClicks })
	if len(all) > 20 {
		all = all[:20]
	}
	sort.Slice(cannibalized, func(i, j int) bool { return cannibalized[i].PageCount > cannibalized[j].PageCount })

	return KeywordInsights{TopQueries: all, Cannibalized: cannibalized}
}

func buildOpportunities(issues []models.SEOIssue, pageByID map[uint]models.Page) []Opportunity {
	var opps []Opportunity
	for _, issue := range issues {
		page := pageByID[issue.PageID]
		urgency := OpportunityMedium
		switch issue.Severity {
		case models.SeverityCritical:
			urgency = OpportunityUrgent
		case models.SeverityWarning:
			urgency = OpportunityHigh
		case models.SeverityInfo:
			urgency = OpportunityLow
		}
		opps = append(opps, Opportunity{
			Urgency:     urgency,
			Title:       issue.Title,
			Description: issue.Message,
			AffectedURL: page.URL,
		})
	}
	order := map[OpportunityUrgency]int{OpportunityUrgent: 0, OpportunityHigh: 1, OpportunityMedium: 2, OpportunityLow: 3}
	sort.Slice(opps, func(i, j int) bool { return order[opps[i].Urgency] < order[opps[j].Urgency] })
	if len(opps) > 25 {
		opps = opps[:25]
	}
	return opps
}
