package discovery

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seocore/seocore/pkg/ratelimiter"
)

func newTestDiscoverer() *Discoverer {
	return New(ratelimiter.NewBatch(1000, 10, 10), slog.Default())
}

func TestFromSitemapParsesURLSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc></url>
  <url><loc>https://example.com/b</loc></url>
</urlset>`))
	}))
	defer srv.Close()

	d := newTestDiscoverer()
	urls, err := d.FromSitemap(t.Context(), srv.URL, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
}

func TestFromSitemapFollowsIndexWithCap(t *testing.T) {
	var childHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/index.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>CHILD</loc></sitemap>
</sitemapindex>`))
	})
	mux.HandleFunc("/child.xml", func(w http.ResponseWriter, r *http.Request) {
		childHits++
		w.Write([]byte(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/x</loc></url>
</urlset>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// rewrite the placeholder child loc to point at our test server
	mux.HandleFunc("/index2.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>` + srv.URL + `/child.xml</loc></sitemap>
</sitemapindex>`))
	})

	d := newTestDiscoverer()
	urls, err := d.FromSitemap(t.Context(), srv.URL+"/index2.xml", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/x"}, urls)
	assert.Equal(t, 1, childHits)
}

func TestFromSitemapRejectsInvalidXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not xml at all"))
	}))
	defer srv.Close()

	d := newTestDiscoverer()
	_, err := d.FromSitemap(t.Context(), srv.URL, 10)
	assert.ErrorIs(t, err, ErrSitemapParse)
}
