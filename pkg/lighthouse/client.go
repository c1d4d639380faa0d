// Package lighthouse calls the PageSpeed Insights API (Lighthouse-as-a-
// service) and caches raw responses in Redis keyed by URL+strategy,
// grounded on the lighthouse client in the retrieved website-optimizer
// source (redis.Client cache, golang.org/x/time/rate pacing), adapted to
// the mobile-primary / optional-desktop split from spec.md §4.3.2.a.
package lighthouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	apiBaseURL  = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"
	cacheTTL    = 1 * time.Hour
	maxAttempts = 3
)

// Strategy is the PageSpeed Insights device emulation strategy.
type Strategy string

const (
	StrategyMobile  Strategy = "mobile"
	StrategyDesktop Strategy = "desktop"
)

// Categories requested on every audit (spec.md §4.3.2.b: five category scores).
var Categories = []string{"performance", "accessibility", "best-practices", "seo", "pwa"}

// Client wraps the PageSpeed Insights HTTP API with a Redis response cache.
type Client struct {
	httpClient *http.Client
	redis      *redis.Client
	apiKey     string
}

// NewClient builds a Client. redisClient may be nil, in which case caching
// is skipped (every call hits the upstream API).
func NewClient(apiKey string, redisClient *redis.Client) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		redis:      redisClient,
		apiKey:     apiKey,
	}
}

// Result is the subset of the PageSpeed response pkg/collector persists.
type Result struct {
	ScoreSEO           *int
	ScorePerformance   *int
	ScoreAccessibility *int
	ScoreBestPractices *int
	ScorePWA           *int

	LCP float64
	FID float64
	CLS float64
	FCP float64
	TTI float64
	TBT float64
}

// ErrClientError marks a non-retryable 4xx response.
var ErrClientError = errors.New("lighthouse: client error")

// Fetch runs a PageSpeed Insights audit for targetURL under the given
// strategy, retrying transient failures up to maxAttempts times with
// exponential backoff (spec.md §4.3.2.a); 4xx responses are never
// retried and 429 gets a longer backoff.
func (c *Client) Fetch(ctx context.Context, targetURL string, strategy Strategy) (*Result, error) {
	cacheKey := c.cacheKey(targetURL, strategy)

	if cached, ok := c.fromCache(ctx, cacheKey); ok {
		return cached, nil
	}

	var lastErr error
	backoff := 2 * time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := c.fetchOnce(ctx, targetURL, strategy)
		if err == nil {
			c.toCache(ctx, cacheKey, result)
			return result, nil
		}
		if errors.Is(err, ErrClientError) {
			return nil, err
		}
		lastErr = err

		wait := backoff
		if isRateLimited(err) {
			wait = backoff * 4
		}
		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("lighthouse: fetch failed after %d attempts: %w", maxAttempts, lastErr)
}

type rateLimitError struct{ status int }

func (e *rateLimitError) Error() string { return fmt.Sprintf("lighthouse: rate limited (status %d)", e.status) }

func isRateLimited(err error) bool {
	var rle *rateLimitError
	return errors.As(err, &rle)
}

func (c *Client) fetchOnce(ctx context.Context, targetURL string, strategy Strategy) (*Result, error) {
	q := url.Values{}
	q.Set("url", targetURL)
	q.Set("strategy", string(strategy))
	for _, cat := range Categories {
		q.Add("category", cat)
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lighthouse: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lighthouse: reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &rateLimitError{status: resp.StatusCode}
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("lighthouse: upstream %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d: %s", ErrClientError, resp.StatusCode, string(body))
	}

	return parseResponse(body)
}

// psiResponse is the subset of the PageSpeed Insights JSON shape this
// client reads (spec.md §6 external contracts).
type psiResponse struct {
	LighthouseResult struct {
		Categories map[string]struct {
			Score *float64 `json:"score"`
		} `json:"categories"`
		Audits map[string]struct {
			NumericValue *float64 `json:"numericValue"`
		} `json:"audits"`
	} `json:"lighthouseResult"`
}

func parseResponse(body []byte) (*Result, error) {
	var raw psiResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("lighthouse: decoding response: %w", err)
	}

	scoreOf := func(category string) *int {
		cat, ok := raw.LighthouseResult.Categories[category]
		if !ok || cat.Score == nil {
			return nil
		}
		v := int(*cat.Score * 100)
		return &v
	}
	numericOf := func(audit string) float64 {
		a, ok := raw.LighthouseResult.Audits[audit]
		if !ok || a.NumericValue == nil {
			return 0
		}
		return *a.NumericValue
	}

	return &Result{
		ScoreSEO:           scoreOf("seo"),
		ScorePerformance:   scoreOf("performance"),
		ScoreAccessibility: scoreOf("accessibility"),
		ScoreBestPractices: scoreOf("best-practices"),
		ScorePWA:           scoreOf("pwa"),
		LCP:                numericOf("largest-contentful-paint"),
		FID:                numericOf("max-potential-fid"),
		CLS:                numericOf("cumulative-layout-shift"),
		FCP:                numericOf("first-contentful-paint"),
		TTI:                numericOf("interactive"),
		TBT:                numericOf("total-blocking-time"),
	}, nil
}

func (c *Client) cacheKey(targetURL string, strategy Strategy) string {
	return fmt.Sprintf("lighthouse:%s:%s", strategy, targetURL)
}

func (c *Client) fromCache(ctx context.Context, key string) (*Result, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (c *Client) toCache(ctx context.Context, key string, result *Result) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, cacheTTL).Err()
}
