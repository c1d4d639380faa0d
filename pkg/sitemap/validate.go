package sitemap

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/seocore/seocore/pkg/models"
)

// Size limits from spec.md §6's sitemap protocol section.
const (
	MaxURLsPerFile = 50000
	MaxFileBytes   = 50 * 1024 * 1024
)

var validChangeFreqs = map[models.ChangeFreq]bool{
	models.ChangeFreqAlways:  true,
	models.ChangeFreqHourly:  true,
	models.ChangeFreqDaily:   true,
	models.ChangeFreqWeekly:  true,
	models.ChangeFreqMonthly: true,
	models.ChangeFreqYearly:  true,
	models.ChangeFreqNever:   true,
}

// ValidationError collects every rule violation found by Validate rather
// than failing on the first one, so a caller previewing an edit session can
// show the whole list at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sitemap: %d validation problem(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Validate checks entries and the already-rendered document against every
// rule in spec.md §6/§4.10: URL count, byte size, loc scheme, changefreq
// enum membership, priority range, and duplicate loc values.
func Validate(entries []models.SitemapEntry, rendered []byte) error {
	var problems []string

	if len(entries) > MaxURLsPerFile {
		problems = append(problems, fmt.Sprintf("%d URLs exceeds the %d-per-file limit", len(entries), MaxURLsPerFile))
	}
	if len(rendered) > MaxFileBytes {
		problems = append(problems, fmt.Sprintf("rendered document is %d bytes, exceeds the %d byte limit", len(rendered), MaxFileBytes))
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Loc] {
			problems = append(problems, fmt.Sprintf("duplicate loc %q", e.Loc))
		}
		seen[e.Loc] = true

		if !isValidLoc(e.Loc) {
			problems = append(problems, fmt.Sprintf("loc %q is not a valid http(s) URL", e.Loc))
		}
		if e.ChangeFreq != "" && !validChangeFreqs[e.ChangeFreq] {
			problems = append(problems, fmt.Sprintf("loc %q has invalid changefreq %q", e.Loc, e.ChangeFreq))
		}
		if e.Priority < 0 || e.Priority > 1 {
			problems = append(problems, fmt.Sprintf("loc %q has priority %.2f outside [0,1]", e.Loc, e.Priority))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func isValidLoc(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
