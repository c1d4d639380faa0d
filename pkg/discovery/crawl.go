package discovery

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// crawlHomepage is the fallback path when no sitemap candidate yields a
// URL: a same-domain breadth-limited crawl starting from base, stopping
// at maxDepth levels of links or maxPages discovered URLs, whichever
// comes first.
func (d *Discoverer) crawlHomepage(ctx context.Context, base string, maxDepth, maxPages int) []string {
	visited := make(map[string]struct{})
	var mu sync.Mutex

	var walk func(pageURL string, depth int)
	walk = func(pageURL string, depth int) {
		mu.Lock()
		if depth >= maxDepth {
			mu.Unlock()
			return
		}
		if _, seen := visited[pageURL]; seen {
			mu.Unlock()
			return
		}
		if len(visited) >= maxPages {
			mu.Unlock()
			return
		}
		visited[pageURL] = struct{}{}
		mu.Unlock()

		links, err := d.extractLinks(ctx, pageURL, base)
		if err != nil {
			d.logger.Warn("crawl fetch failed", "url", pageURL, "error", err)
			return
		}

		for _, link := range links {
			mu.Lock()
			_, seen := visited[link]
			tooMany := len(visited) >= maxPages
			mu.Unlock()
			if seen || tooMany {
				continue
			}
			if depth+1 < maxDepth {
				walk(link, depth+1)
			} else {
				mu.Lock()
				if len(visited) < maxPages {
					visited[link] = struct{}{}
				}
				mu.Unlock()
			}
		}
	}

	walk(base, 0)

	urls := make([]string, 0, len(visited))
	for u := range visited {
		urls = append(urls, u)
	}
	return urls
}

// extractLinks fetches pageURL and returns every same-domain anchor href,
// normalized to scheme://host/path with fragments and query strings
// stripped.
func (d *Discoverer) extractLinks(ctx context.Context, pageURL, baseDomain string) ([]string, error) {
	body, err := d.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}

	parsedBase, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		abs, err := parsedBase.Parse(href)
		if err != nil {
			return
		}
		if !strings.Contains(abs.Host, baseDomain) {
			return
		}
		clean := &url.URL{Scheme: abs.Scheme, Host: abs.Host, Path: abs.Path}
		links = append(links, clean.String())
	})
	return links, nil
}
