package sitemap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seocore/seocore/pkg/models"
)

func TestValidateAcceptsWellFormedEntries(t *testing.T) {
	entries := []models.SitemapEntry{
		{Loc: "https://example.com/a", ChangeFreq: models.ChangeFreqDaily, Priority: 0.8},
		{Loc: "https://example.com/b", ChangeFreq: models.ChangeFreqWeekly, Priority: 0.5},
	}
	rendered, err := RenderURLSet(entries)
	require.NoError(t, err)
	assert.NoError(t, Validate(entries, rendered))
}

func TestValidateRejectsBadScheme(t *testing.T) {
	entries := []models.SitemapEntry{{Loc: "ftp://example.com/a"}}
	err := Validate(entries, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid http(s) URL")
}

func TestValidateRejectsDuplicateLoc(t *testing.T) {
	entries := []models.SitemapEntry{
		{Loc: "https://example.com/a"},
		{Loc: "https://example.com/a"},
	}
	err := Validate(entries, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate loc")
}

func TestValidateRejectsBadChangeFreq(t *testing.T) {
	entries := []models.SitemapEntry{{Loc: "https://example.com/a", ChangeFreq: "biweekly"}}
	err := Validate(entries, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid changefreq")
}

func TestValidateRejectsPriorityOutOfRange(t *testing.T) {
	entries := []models.SitemapEntry{{Loc: "https://example.com/a", Priority: 1.5}}
	err := Validate(entries, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside [0,1]")
}

func TestValidateRejectsTooManyURLs(t *testing.T) {
	entries := make([]models.SitemapEntry, MaxURLsPerFile+1)
	for i := range entries {
		entries[i] = models.SitemapEntry{Loc: "https://example.com/a"}
	}
	err := Validate(entries, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds the")
}

func TestValidateAggregatesMultipleProblems(t *testing.T) {
	entries := []models.SitemapEntry{
		{Loc: "not-a-url", Priority: 2},
	}
	err := Validate(entries, nil)
	require.Error(t, err)
	verr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(verr.Problems), 2)
	assert.True(t, strings.Contains(err.Error(), "validation problem"))
}
