package sitemap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seocore/seocore/pkg/models"
)

func TestRenderURLSetEscapesAndFormats(t *testing.T) {
	when := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []models.SitemapEntry{
		{Loc: "https://example.com/a?x=1&y=2", ChangeFreq: models.ChangeFreqWeekly, Priority: 0.7, LastMod: &when},
	}
	out, err := RenderURLSet(entries)
	require.NoError(t, err)
	body := string(out)
	assert.Contains(t, body, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, body, "https://example.com/a?x=1&amp;y=2")
	assert.Contains(t, body, "<lastmod>2026-03-01</lastmod>")
	assert.Contains(t, body, "<changefreq>weekly</changefreq>")
	assert.Contains(t, body, "<priority>0.7</priority>")
}

func TestRenderIndexListsEachSitemap(t *testing.T) {
	when := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	out, err := RenderIndex([]string{
		"https://example.com/sitemap-1.xml",
		"https://example.com/sitemap-2.xml",
	}, when)
	require.NoError(t, err)
	body := string(out)
	assert.Contains(t, body, "<sitemapindex")
	assert.Contains(t, body, "sitemap-1.xml")
	assert.Contains(t, body, "sitemap-2.xml")
}
