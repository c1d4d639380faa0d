// Package searchconsole wraps the Google Search Console API (URL Inspection
// and Search Analytics), grounded on the retrieved Python search_console.py
// service's retry/error semantics, adapted to google.golang.org/api's
// generated searchconsole/v1 client and a service-account oauth2 flow.
package searchconsole

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	searchconsolev1 "google.golang.org/api/searchconsole/v1"
)

const (
	maxRetries   = 3
	retryBaseDelay = 3 * time.Second
	maxBatchSize = 100
)

// Client talks to the Search Console API on behalf of one service account.
type Client struct {
	svc *searchconsolev1.Service
}

// NewClient builds a Client authenticated with a service-account JSON
// credential. The webmasters scope is required for URL Inspection, a plain
// readonly scope is not sufficient.
func NewClient(ctx context.Context, credentialsJSON []byte) (*Client, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, searchconsolev1.WebmastersScope)
	if err != nil {
		return nil, fmt.Errorf("searchconsole: loading credentials: %w", err)
	}

	svc, err := searchconsolev1.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("searchconsole: building service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// IndexVerdict mirrors the verdict values returned by the URL Inspection API.
type IndexVerdict string

const (
	VerdictPass    IndexVerdict = "PASS"
	VerdictPartial IndexVerdict = "PARTIAL"
	VerdictFail    IndexVerdict = "FAIL"
	VerdictNeutral IndexVerdict = "NEUTRAL"
	VerdictUnknown IndexVerdict = "UNKNOWN"
)

// IndexStatus is the normalized result of a single URL Inspection call.
type IndexStatus struct {
	PageURL        string
	IsIndexed      bool
	Verdict        IndexVerdict
	CoverageState  string
	IndexingState  string
	CrawledAs      string
	PageFetchState string
	LastCrawlTime  *time.Time
	Err            error
}

// InspectURL queries the URL Inspection API for a single URL, retrying
// transient (5xx, network) failures up to maxRetries times with linear
// backoff; 4xx responses return immediately without retrying.
func (c *Client) InspectURL(ctx context.Context, siteURL, pageURL string) IndexStatus {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		status, err := c.inspectOnce(ctx, siteURL, pageURL)
		if err == nil {
			return status
		}
		if !isTransient(err) {
			return IndexStatus{PageURL: pageURL, Err: err}
		}
		lastErr = err
		slog.Warn("transient error inspecting URL", "page_url", pageURL, "attempt", attempt, "error", err)
		if attempt == maxRetries {
			break
		}
		select {
		case <-time.After(retryBaseDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return IndexStatus{PageURL: pageURL, Err: ctx.Err()}
		}
	}
	return IndexStatus{PageURL: pageURL, Err: fmt.Errorf("searchconsole: inspecting %s failed after %d attempts: %w", pageURL, maxRetries, lastErr)}
}

func (c *Client) inspectOnce(ctx context.Context, siteURL, pageURL string) (IndexStatus, error) {
	req := &searchconsolev1.InspectUrlIndexRequest{
		InspectionUrl: pageURL,
		SiteUrl:       siteURL,
	}
	resp, err := c.svc.UrlInspection.Index.Inspect(req).Context(ctx).Do()
	if err != nil {
		return IndexStatus{}, err
	}

	result := resp.InspectionResult.IndexStatusResult
	verdict := IndexVerdict(result.Verdict)
	if verdict == "" {
		verdict = VerdictUnknown
	}

	var lastCrawl *time.Time
	if result.LastCrawlTime != "" {
		if t, err := time.Parse(time.RFC3339, result.LastCrawlTime); err == nil {
			lastCrawl = &t
		}
	}

	return IndexStatus{
		PageURL:        pageURL,
		IsIndexed:      verdict == VerdictPass,
		Verdict:        verdict,
		CoverageState:  result.CoverageState,
		IndexingState:  result.IndexingState,
		CrawledAs:      result.CrawledAs,
		PageFetchState: result.PageFetchState,
		LastCrawlTime:  lastCrawl,
	}, nil
}

// BatchInspectURLs checks index status for many URLs, chunking into groups
// of maxBatchSize and inspecting each URL independently so that one failure
// never drops the rest of the batch. The googleapi client library doesn't
// expose the JSON batch endpoint for this generated API the way the Python
// client does, so fan-out happens at the application level instead, gated
// by the caller's rate limiter.
func (c *Client) BatchInspectURLs(ctx context.Context, siteURL string, pageURLs []string) []IndexStatus {
	if len(pageURLs) == 0 {
		return nil
	}
	if len(pageURLs) > maxBatchSize {
		slog.Warn("batch size exceeds limit, chunking", "size", len(pageURLs), "limit", maxBatchSize)
		var all []IndexStatus
		for i := 0; i < len(pageURLs); i += maxBatchSize {
			end := i + maxBatchSize
			if end > len(pageURLs) {
				end = len(pageURLs)
			}
			all = append(all, c.BatchInspectURLs(ctx, siteURL, pageURLs[i:end])...)
		}
		return all
	}

	results := make([]IndexStatus, len(pageURLs))
	for i, pageURL := range pageURLs {
		results[i] = c.InspectURL(ctx, siteURL, pageURL)
	}

	successCount := 0
	for _, r := range results {
		if r.Err == nil {
			successCount++
		}
	}
	slog.Info("batch index inspection complete", "site_url", siteURL, "successful", successCount, "total", len(results))
	return results
}

// AnalyticsRow is one dimension-grouped row from a Search Analytics query.
type AnalyticsRow struct {
	Keys        []string
	Clicks      float64
	Impressions float64
	CTR         float64
	Position    float64
}

// PageAnalytics aggregates Search Analytics rows for a single page,
// matching the shape get_page_analytics builds from raw query rows.
type PageAnalytics struct {
	PageURL      string
	StartDate    string
	EndDate      string
	Clicks       int
	Impressions  int
	CTR          float64
	AvgPosition  float64
	QueryCount   int
	TopQueries   []AnalyticsRow
}

// QuerySearchAnalytics runs a Search Analytics query over siteURL between
// startDate and endDate (YYYY-MM-DD), grouped by dimensions.
// SubmitSitemap registers sitemapURL with Search Console for siteURL,
// the quick-win/priority-action "submit sitemap" dispatch target
// (spec.md §4.9). Uses the generated Sitemaps service directly; there
// is no retry here since a submit is a single idempotent PUT-style call.
func (c *Client) SubmitSitemap(ctx context.Context, siteURL, sitemapURL string) error {
	if err := c.svc.Sitemaps.Submit(siteURL, sitemapURL).Context(ctx).Do(); err != nil {
		return fmt.Errorf("searchconsole: submitting sitemap %s: %w", sitemapURL, err)
	}
	return nil
}

func (c *Client) QuerySearchAnalytics(ctx context.Context, siteURL, startDate, endDate string, dimensions []string, filters []*searchconsolev1.ApiDimensionFilter, rowLimit int64) ([]AnalyticsRow, error) {
	req := &searchconsolev1.SearchAnalyticsQueryRequest{
		StartDate:  startDate,
		EndDate:    endDate,
		Dimensions: dimensions,
		RowLimit:   rowLimit,
	}
	if len(filters) > 0 {
		req.DimensionFilterGroups = []*searchconsolev1.ApiDimensionFilterGroup{
			{Filters: filters},
		}
	}

	resp, err := c.svc.Searchanalytics.Query(siteURL, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("searchconsole: search analytics query for %s: %w", siteURL, err)
	}

	rows := make([]AnalyticsRow, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		rows = append(rows, AnalyticsRow{
			Keys:        r.Keys,
			Clicks:      r.Clicks,
			Impressions: r.Impressions,
			CTR:         r.Ctr,
			Position:    r.Position,
		})
	}
	return rows, nil
}

// GetPageAnalytics fetches and aggregates the last 30 days of per-query
// Search Analytics rows for a single page, matching the aggregation the
// Python service performs (clicks/impressions summed, CTR and position
// averaged, top 10 queries retained).
func (c *Client) GetPageAnalytics(ctx context.Context, siteURL, pageURL string) (*PageAnalytics, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -30)
	startDate := start.Format("2006-01-02")
	endDate := end.Format("2006-01-02")

	filters := []*searchconsolev1.ApiDimensionFilter{
		{Dimension: "page", Operator: "equals", Expression: pageURL},
	}

	rows, err := c.QuerySearchAnalytics(ctx, siteURL, startDate, endDate, []string{"query"}, filters, 100)
	if err != nil {
		return nil, err
	}

	var totalClicks, totalImpressions float64
	var totalPosition float64
	for _, r := range rows {
		totalClicks += r.Clicks
		totalImpressions += r.Impressions
		totalPosition += r.Position
	}

	var avgCTR, avgPosition float64
	if totalImpressions > 0 {
		avgCTR = totalClicks / totalImpressions * 100
	}
	if len(rows) > 0 {
		avgPosition = totalPosition / float64(len(rows))
	}

	top := rows
	if len(top) > 10 {
		top = top[:10]
	}

	return &PageAnalytics{
		PageURL:     pageURL,
		StartDate:   startDate,
		EndDate:     endDate,
		Clicks:      int(totalClicks),
		Impressions: int(totalImpressions),
		CTR:         avgCTR,
		AvgPosition: avgPosition,
		QueryCount:  len(rows),
		TopQueries:  top,
	}, nil
}

// isTransient reports whether err is worth retrying: network errors,
// timeouts, and 5xx responses. 4xx (including 403 permission errors and
// 404 unknown URL) are never retried.
func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range []string{"timeout", "connection reset", "connection refused", "ssl", "eof"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
