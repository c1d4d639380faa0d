// Package sitemap implements the sitemap side of C10 (spec.md §4.10's
// closing paragraph, §6): rendering SitemapEntry rows into a
// sitemaps.org-conformant urlset, validating it, and batching mutations
// behind an EditSession preview/validate/deploy cycle before handing the
// rendered XML to pkg/deploy.Pipeline for commit.
package sitemap

import (
	"encoding/xml"
	"time"

	"github.com/seocore/seocore/pkg/models"
)

const sitemapXMLNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

// urlEntry is one <url> block, mirroring sitemaps.org's schema.
type urlEntry struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq,omitempty"`
	Priority   float64 `xml:"priority,omitempty"`
}

// urlset is the root element of a sitemap.xml file.
type urlset struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

// indexEntry is one <sitemap> block inside a sitemapindex.
type indexEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// sitemapIndex is the root element of a sitemap index file, used when a
// domain's entry count exceeds maxURLsPerFile.
type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Xmlns    string       `xml:"xmlns,attr"`
	Sitemaps []indexEntry `xml:"sitemap"`
}

// RenderURLSet marshals entries into a single urlset document, XML-escaped
// by encoding/xml itself. Callers must have already checked MaxURLsPerFile
// via Validate; RenderURLSet does not itself refuse to render an oversized
// set.
func RenderURLSet(entries []models.SitemapEntry) ([]byte, error) {
	set := urlset{Xmlns: sitemapXMLNS, URLs: make([]urlEntry, 0, len(entries))}
	for _, e := range entries {
		u := urlEntry{
			Loc:        e.Loc,
			ChangeFreq: string(e.ChangeFreq),
			Priority:   e.Priority,
		}
		if e.LastMod != nil {
			u.LastMod = e.LastMod.UTC().Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}
	return marshalWithHeader(set)
}

// RenderIndex marshals a set of already-written sitemap file locations into
// a sitemapindex document, used once a domain's entry count is split across
// multiple urlset files by MaxURLsPerFile.
func RenderIndex(locs []string, generatedAt time.Time) ([]byte, error) {
	idx := sitemapIndex{Xmlns: sitemapXMLNS, Sitemaps: make([]indexEntry, 0, len(locs))}
	lastMod := generatedAt.UTC().Format("2006-01-02")
	for _, loc := range locs {
		idx.Sitemaps = append(idx.Sitemaps, indexEntry{Loc: loc, LastMod: lastMod})
	}
	return marshalWithHeader(idx)
}

func marshalWithHeader(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+len(xml.Header))
	out = append(out, []byte(xml.Header)...)
	out = append(out, body...)
	return out, nil
}
