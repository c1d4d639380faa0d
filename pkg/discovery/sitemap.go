package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
)

// maxChildSitemaps bounds recursion into a sitemap index, mirroring the
// original scanner's cap on how many child sitemaps get fetched.
const maxChildSitemaps = 10

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// candidateSitemapPaths are tried in order against a domain's base URL
// until one yields at least one URL.
var candidateSitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/wp-sitemap.xml",
}

// FromSitemap recursively fetches sitemapURL, following sitemap-index
// entries (capped at maxChildSitemaps children) and flattening regular
// <url> entries, stopping once maxPages URLs have been collected.
func (d *Discoverer) FromSitemap(ctx context.Context, sitemapURL string, maxPages int) ([]string, error) {
	return d.fromSitemap(ctx, sitemapURL, maxPages, 0)
}

func (d *Discoverer) fromSitemap(ctx context.Context, sitemapURL string, maxPages, depth int) ([]string, error) {
	if depth > 2 {
		// sitemap indexes referencing sitemap indexes referencing sitemap
		// indexes is almost certainly a misconfiguration or a loop.
		return nil, nil
	}

	body, err := d.fetch(ctx, sitemapURL)
	if err != nil {
		d.logger.Warn("sitemap fetch failed", "url", sitemapURL, "error", err)
		return nil, err
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("discovery: read sitemap body: %w", err)
	}

	var idx sitemapIndex
	if err := xml.Unmarshal(raw, &idx); err == nil && len(idx.Sitemaps) > 0 {
		d.logger.Info("sitemap index found", "url", sitemapURL, "children", len(idx.Sitemaps))
		var urls []string
		children := idx.Sitemaps
		if len(children) > maxChildSitemaps {
			children = children[:maxChildSitemaps]
		}
		for _, child := range children {
			childURLs, err := d.fromSitemap(ctx, child.Loc, maxPages-len(urls), depth+1)
			if err != nil {
				continue
			}
			urls = append(urls, childURLs...)
			if len(urls) >= maxPages {
				break
			}
		}
		return capURLs(urls, maxPages), nil
	}

	var set urlSet
	if err := xml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSitemapParse, sitemapURL, err)
	}

	urls := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if len(urls) >= maxPages {
			break
		}
		urls = append(urls, u.Loc)
	}
	d.logger.Info("sitemap parsed", "url", sitemapURL, "urls", len(urls))
	return urls, nil
}

func capURLs(urls []string, max int) []string {
	if len(urls) > max {
		return urls[:max]
	}
	return urls
}

func (d *Discoverer) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := d.limiter.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", d.userAgent)

		resp, err := d.client.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return fmt.Errorf("discovery: %s returned %d", url, resp.StatusCode)
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
