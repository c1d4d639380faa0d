// Package discovery implements C2: finding the set of URLs that make
// up a domain, preferring its sitemap(s) and falling back to a
// same-domain crawl, then organizing the result into a page hierarchy.
// Ported from the Python DomainScanner service (original_source
// seo_analyzer/services/domain_scanner.py) onto net/http,
// encoding/xml, and goquery.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/seocore/seocore/pkg/ratelimiter"
)

const (
	defaultCrawlMaxDepth = 2
	userAgent            = "Mozilla/5.0 (compatible; SEOCoreBot/1.0)"
)

// Discoverer finds and organizes URLs for a domain.
type Discoverer struct {
	client    *http.Client
	limiter   *ratelimiter.BatchLimiter
	logger    *slog.Logger
	userAgent string
}

// New builds a Discoverer using limiter to pace outbound fetches (sitemap
// probes and crawl requests share the same bucket).
func New(limiter *ratelimiter.BatchLimiter, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   limiter,
		logger:    logger,
		userAgent: userAgent,
	}
}

// PageDraft is one discovered URL, organized but not yet persisted.
type PageDraft struct {
	URL         string
	Path        string
	IsSubdomain bool
	Subdomain   string
	DepthLevel  int
	ParentIndex *int
}

// Result is the full output of a domain discovery pass.
type Result struct {
	Hostname   string
	Scheme     string
	TotalURLs  int
	Pages      []PageDraft
	Subdomains []string
	UsedSource string // "sitemap:<url>" or "crawl"
}

// DiscoverFromDomain tries each candidate sitemap location in turn, and
// falls back to crawling the homepage if none yield a URL (spec.md §4.2).
func (d *Discoverer) DiscoverFromDomain(ctx context.Context, hostname, scheme string, maxPages int) (*Result, error) {
	if scheme == "" {
		scheme = "https"
	}
	base := fmt.Sprintf("%s://%s", scheme, hostname)

	seen := make(map[string]struct{})
	usedSource := ""

	for _, path := range candidateSitemapPaths {
		candidate := base + path
		urls, err := d.FromSitemap(ctx, candidate, maxPages)
		if err != nil || len(urls) == 0 {
			continue
		}
		for _, u := range urls {
			seen[u] = struct{}{}
		}
		usedSource = "sitemap:" + candidate
		d.logger.Info("sitemap discovery succeeded", "domain", hostname, "sitemap", candidate, "urls", len(urls))
		break
	}

	if len(seen) == 0 {
		d.logger.Info("no sitemap found, falling back to crawl", "domain", hostname)
		for _, u := range d.crawlHomepage(ctx, base, defaultCrawlMaxDepth, maxPages) {
			seen[u] = struct{}{}
		}
		usedSource = "crawl"
	}

	if len(seen) == 0 {
		return nil, ErrNoURLsDiscovered
	}

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}

	pages, subdomains := organizeURLs(urls, hostname)
	pages = buildHierarchy(pages)

	return &Result{
		Hostname:   hostname,
		Scheme:     scheme,
		TotalURLs:  len(urls),
		Pages:      pages,
		Subdomains: subdomains,
		UsedSource: usedSource,
	}, nil
}

// organizeURLs classifies each URL by subdomain membership and computes
// its path-segment depth.
func organizeURLs(urls []string, hostname string) ([]PageDraft, []string) {
	pages := make([]PageDraft, 0, len(urls))
	subdomainSet := make(map[string]struct{})

	for _, raw := range urls {
		host, path := splitURL(raw)
		isSub := false
		subdomain := ""

		if host != hostname && host != "www."+hostname && strings.HasSuffix(host, "."+hostname) {
			subdomain = strings.TrimSuffix(host, "."+hostname)
			isSub = subdomain != ""
			if isSub {
				subdomainSet[subdomain] = struct{}{}
			}
		}

		trimmed := strings.Trim(path, "/")
		depth := 0
		if trimmed != "" {
			depth = len(strings.Split(trimmed, "/"))
		}

		pages = append(pages, PageDraft{
			URL:         raw,
			Path:        path,
			IsSubdomain: isSub,
			Subdomain:   subdomain,
			DepthLevel:  depth,
		})
	}

	subdomains := make([]string, 0, len(subdomainSet))
	for s := range subdomainSet {
		subdomains = append(subdomains, s)
	}
	return pages, subdomains
}

func splitURL(raw string) (host, path string) {
	withoutScheme := raw
	if idx := strings.Index(raw, "://"); idx != -1 {
		withoutScheme = raw[idx+3:]
	}
	slash := strings.IndexByte(withoutScheme, '/')
	if slash == -1 {
		return withoutScheme, "/"
	}
	return withoutScheme[:slash], withoutScheme[slash:]
}
