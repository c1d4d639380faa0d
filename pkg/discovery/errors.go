package discovery

import "errors"

var (
	// ErrNoURLsDiscovered indicates neither sitemap probing nor the crawl
	// fallback produced any URL for a domain.
	ErrNoURLsDiscovered = errors.New("discovery: no URLs discovered")

	// ErrSitemapParse indicates a fetched sitemap body was not valid
	// sitemap XML; the caller falls through to the next candidate URL.
	ErrSitemapParse = errors.New("discovery: sitemap XML parse failed")
)
