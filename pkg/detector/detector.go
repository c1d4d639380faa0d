// Package detector implements C5 (spec.md §4.5): parses a fetched HTML
// document with goquery against the closed issue taxonomy, computes the
// health score / potential-gain / fix-time formulas, and applies the
// idempotent report-generation rules (delete-open-then-insert, skip
// terminal statuses, verify-mode transitions).
package detector

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/models"
)

const (
	titleMinLen       = 30
	titleMaxLen       = 60
	descriptionMinLen = 70
	descriptionMaxLen = 160
	thinContentWords  = 300
	lowInternalLinks  = 3
	slowLCPMillis     = 2500
	highCLS           = 0.1

	potentialGainCeiling = 35
)

// Detector analyzes HTML documents for SEO issues.
type Detector struct{}

// New builds a Detector.
func New() *Detector {
	return &Detector{}
}

// Analyze parses html and returns every issue detected against the
// closed taxonomy, given an optional metrics snapshot (LCP/CLS checks
// are skipped when snapshot is nil).
func (d *Detector) Analyze(html string, snapshot *models.SEOMetricsSnapshot) []models.SEOIssue {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var issues []models.SEOIssue
	now := time.Now()
	add := func(typ models.IssueType, severity models.Severity, title, message, current, suggested string, autoFix bool) {
		issues = append(issues, models.SEOIssue{
			Type:             typ,
			Severity:         severity,
			Title:            title,
			Message:          message,
			CurrentValue:     current,
			SuggestedValue:   suggested,
			AutoFixAvailable: autoFix,
			Status:           models.IssueStatusOpen,
			DetectedAt:       now,
		})
	}

	checkTitle(doc, add)
	checkDescription(doc, add)
	checkH1(doc, add)
	checkImageAlt(doc, add)
	checkOpenGraph(doc, add)
	checkInternalLinks(doc, add)
	checkThinContent(doc, add)

	if snapshot != nil {
		checkCoreWebVitals(snapshot, add)
	}

	return issues
}

type addFunc func(typ models.IssueType, severity models.Severity, title, message, current, suggested string, autoFix bool)

func checkTitle(doc *goquery.Document, add addFunc) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	switch {
	case title == "":
		add(models.IssueTitleMissing, models.SeverityCritical, "Missing title tag",
			"The page has no <title> element.", "", "", true)
	case len(title) < titleMinLen:
		add(models.IssueTitleTooShort, models.SeverityWarning, "Title too short",
			"Title tags under 30 characters under-use available search-result space.", title, "", true)
	case len(title) > titleMaxLen:
		add(models.IssueTitleTooLong, models.SeverityWarning, "Title too long",
			"Title tags over 60 characters are truncated in search results.", title, "", true)
	}
}

func checkDescription(doc *goquery.Document, add addFunc) {
	desc, exists := doc.Find(`meta[name="description"]`).First().Attr("content")
	desc = strings.TrimSpace(desc)
	switch {
	case !exists || desc == "":
		add(models.IssueDescriptionMissing, models.SeverityCritical, "Missing meta description",
			"The page has no meta description.", "", "", true)
	case len(desc) < descriptionMinLen:
		add(models.IssueDescriptionTooShort, models.SeverityWarning, "Meta description too short",
			"Descriptions under 70 characters don't fill the search snippet.", desc, "", true)
	case len(desc) > descriptionMaxLen:
		add(models.IssueDescriptionTooLong, models.SeverityWarning, "Meta description too long",
			"Descriptions over 160 characters are truncated in search results.", desc, "", true)
	}
}

func checkH1(doc *goquery.Document, add addFunc) {
	h1s := doc.Find("h1")
	switch h1s.Length() {
	case 0:
		add(models.IssueH1Missing, models.SeverityCritical, "Missing H1",
			"The page has no <h1> heading.", "", "", true)
	case 1:
		// fine
	default:
		add(models.IssueH1Multiple, models.SeverityWarning, "Multiple H1 headings",
			"The page has more than one <h1>, diluting topical signal.", "", "", false)
	}
}

func checkImageAlt(doc *goquery.Document, add addFunc) {
	missing := 0
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if alt, exists := s.Attr("alt"); !exists || strings.TrimSpace(alt) == "" {
			missing++
		}
	})
	if missing > 0 {
		add(models.IssueImagesMissingAlt, models.SeverityWarning, "Images missing alt text",
			"Images without descriptive alt text hurt accessibility and image search visibility.",
			"", "", true)
	}
}

func checkOpenGraph(doc *goquery.Document, add addFunc) {
	required := []string{"og:title", "og:description", "og:image", "og:url"}
	var missing []string
	for _, prop := range required {
		if content, exists := doc.Find(`meta[property="` + prop + `"]`).First().Attr("content"); !exists || strings.TrimSpace(content) == "" {
			missing = append(missing, prop)
		}
	}
	if len(missing) > 0 {
		add(models.IssueOpenGraphIncomplete, models.SeverityInfo, "Incomplete Open Graph tags",
			"Missing: "+strings.Join(missing, ", ")+".", "", "", true)
	}
}

func checkInternalLinks(doc *goquery.Document, add addFunc) {
	count := 0
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.HasPrefix(href, "/") || strings.HasPrefix(href, "#") {
			count++
		}
	})
	if count < lowInternalLinks {
		add(models.IssueLowInternalLinks, models.SeverityInfo, "Low internal link count",
			"Pages with few internal links are harder for crawlers and users to discover related content.",
			"", "", false)
	}
}

func checkThinContent(doc *goquery.Document, add addFunc) {
	text := strings.TrimSpace(doc.Find("body").Text())
	wordCount := len(strings.Fields(text))
	if wordCount < thinContentWords {
		add(models.IssueThinContent, models.SeverityWarning, "Thin content",
			"Body text has fewer than 300 words, a common thin-content signal.", "", "", false)
	}
}

func checkCoreWebVitals(snapshot *models.SEOMetricsSnapshot, add addFunc) {
	if snapshot.LCP > slowLCPMillis {
		add(models.IssueSlowLCP, models.SeverityCritical, "Slow Largest Contentful Paint",
			"LCP exceeds the 2.5s good threshold.", "", "", false)
	}
	if snapshot.CLS > highCLS {
		add(models.IssueHighCLS, models.SeverityWarning, "High Cumulative Layout Shift",
			"CLS exceeds the 0.1 good threshold.", "", "", false)
	}
}

// Report is the set of computed outputs for a detector run over one page.
type Report struct {
	HealthScore    int
	PotentialGain  int
	FixTimeMinutes int
	Issues         []models.SEOIssue
}

// Score computes the health score, potential-gain, and fix-time
// estimate for a set of issues, exactly per spec.md §4.5's formulas.
func Score(issues []models.SEOIssue) Report {
	penaltySum := 0
	potentialGain := 0
	fixTime := 0
	for _, issue := range issues {
		penaltySum += models.SeverityPenalty(issue.Severity)
		fixTime += models.FixTimeMinutes(issue.Severity)
		if issue.AutoFixAvailable {
			potentialGain += models.SeverityPenalty(issue.Severity)
		}
	}
	if potentialGain > potentialGainCeiling {
		potentialGain = potentialGainCeiling
	}
	health := 100 - penaltySum
	if health < 0 {
		health = 0
	}
	return Report{
		HealthScore:    health,
		PotentialGain:  potentialGain,
		FixTimeMinutes: fixTime,
		Issues:         issues,
	}
}

// Persist writes newly detected issues for pageID, idempotently: it
// deletes currently-open issues for the page first, then inserts the
// new set, leaving resolved/applied/deployed/verified/needs_attention
// rows untouched (spec.md §4.5: those are skipped, never recreated).
func Persist(db *gorm.DB, pageID uint, issues []models.SEOIssue) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("page_id = ? AND status IN ?", pageID, models.OpenStatuses).
			Delete(&models.SEOIssue{}).Error; err != nil {
			return err
		}

		var existingTypes []models.IssueType
		if err := tx.Model(&models.SEOIssue{}).
			Where("page_id = ? AND status IN ?", pageID, models.TerminalStatuses).
			Pluck("type", &existingTypes).Error; err != nil {
			return err
		}
		terminal := make(map[models.IssueType]struct{}, len(existingTypes))
		for _, t := range existingTypes {
			terminal[t] = struct{}{}
		}

		for i := range issues {
			if _, skip := terminal[issues[i].Type]; skip {
				continue
			}
			issues[i].PageID = pageID
			if err := tx.Create(&issues[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// VerifyDeployed implements verify-mode (spec.md §4.5): re-scanning after
// deployment, existing `deployed` issues whose type is still present in
// freshlyDetected transition to needs_attention; types no longer
// detected transition to verified with a verification timestamp.
func VerifyDeployed(db *gorm.DB, pageID uint, freshlyDetected []models.SEOIssue) error {
	stillPresent := make(map[models.IssueType]struct{}, len(freshlyDetected))
	for _, issue := range freshlyDetected {
		stillPresent[issue.Type] = struct{}{}
	}

	var deployed []models.SEOIssue
	if err := db.Where("page_id = ? AND status = ?", pageID, models.IssueStatusDeployed).Find(&deployed).Error; err != nil {
		return err
	}

	now := time.Now()
	return db.Transaction(func(tx *gorm.DB) error {
		for _, issue := range deployed {
			if _, present := stillPresent[issue.Type]; present {
				if err := tx.Model(&issue).Update("status", models.IssueStatusNeedsAttention).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Model(&issue).Updates(map[string]any{
				"status":      models.IssueStatusVerified,
				"verified_at": &now,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
