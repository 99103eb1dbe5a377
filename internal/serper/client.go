// Package serper implements the ranking API client backed by serper.dev.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/antyra/ranksync/internal/clock/system"
	"github.com/antyra/ranksync/internal/metrics"
	"github.com/antyra/ranksync/internal/rank"
)

// Defaults matching the ranking API contract.
const (
	DefaultBaseURL  = "https://google.serper.dev"
	DefaultCountry  = "LK"
	DefaultLanguage = "en"
	DefaultResults  = 100
	DefaultTimeout  = 30 * time.Second
)

// Config holds the ranking API connection settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Country  string
	Language string
	Results  int
	Timeout  time.Duration
}

// Deps carries the client's collaborators. Nil fields fall back to
// defaults: a fresh HTTP client, a three-attempt fixed retry policy, no
// cache, no pacing, substring matching, the system clock, a nop logger.
type Deps struct {
	HTTPClient *http.Client
	Retry      rank.RetryPolicy
	Cache      rank.ResultCache
	Pacer      rank.Pacer
	Matcher    rank.Matcher
	Clock      rank.Clock
	Logger     *zap.Logger
}

// Client queries the ranking API for keyword positions. It implements
// rank.Source.
type Client struct {
	cfg     Config
	http    *http.Client
	retry   rank.RetryPolicy
	cache   rank.ResultCache
	pacer   rank.Pacer
	matcher rank.Matcher
	clock   rank.Clock
	logger  *zap.Logger
}

// New validates the config and builds a Client.
func New(cfg Config, deps Deps) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("serper api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Country == "" {
		cfg.Country = DefaultCountry
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Results <= 0 {
		cfg.Results = DefaultResults
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		cfg:     cfg,
		http:    deps.HTTPClient,
		retry:   deps.Retry,
		cache:   deps.Cache,
		pacer:   deps.Pacer,
		matcher: deps.Matcher,
		clock:   deps.Clock,
		logger:  deps.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	if c.retry == nil {
		c.retry = rank.NewFixedRetryPolicy(3, time.Second)
	}
	if c.matcher == nil {
		c.matcher = rank.SubstringMatch
	}
	if c.clock == nil {
		c.clock = system.New()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

type searchRequest struct {
	Query    string `json:"q"`
	Country  string `json:"gl"`
	Language string `json:"hl"`
	Num      int    `json:"num"`
}

type searchResponse struct {
	Organic []organicResult `json:"organic"`
}

type organicResult struct {
	Position int    `json:"position"`
	Link     string `json:"link"`
}

// Rankings resolves the keyword's position for each requested domain. The
// whole domain set is served by at most one API call; fully cached lookups
// make none. When retries are exhausted the returned map carries Failed
// results and the error is nil; a non-nil error means the context ended.
func (c *Client) Rankings(ctx context.Context, keyword string, domains []string) (map[string]rank.Result, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("keyword is required")
	}
	if len(domains) == 0 {
		return map[string]rank.Result{}, nil
	}

	results := make(map[string]rank.Result, len(domains))
	var missing []string
	for _, domain := range domains {
		if c.cache != nil {
			if r, ok := c.cache.Get(keyword, domain); ok {
				results[domain] = r
				metrics.IncCacheHit()
				continue
			}
		}
		metrics.IncCacheMiss()
		missing = append(missing, domain)
	}
	if len(missing) == 0 {
		return results, nil
	}

	organic, err := c.search(ctx, keyword)
	now := c.clock.Now()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("search %q: %w", keyword, err)
		}
		c.logger.Warn("ranking lookup failed after retries",
			zap.String("keyword", keyword),
			zap.Error(err),
		)
		metrics.IncAPIFailure()
		for _, domain := range missing {
			results[domain] = rank.Result{
				Keyword:   keyword,
				Domain:    domain,
				Failed:    true,
				FetchedAt: now,
			}
		}
		return results, nil
	}

	for _, domain := range missing {
		r := rank.Result{Keyword: keyword, Domain: domain, FetchedAt: now}
		for _, item := range organic {
			if !c.matcher(item.Link, domain) {
				continue
			}
			if item.Position > 0 {
				r.Position = item.Position
				r.Found = true
			}
			break
		}
		results[domain] = r
		if c.cache != nil {
			c.cache.Set(keyword, domain, r)
		}
	}
	return results, nil
}

// search performs the API call under the retry policy, pacing each attempt.
func (c *Client) search(ctx context.Context, keyword string) ([]organicResult, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if c.pacer != nil {
			if err := c.pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}
		organic, err := c.doSearch(ctx, keyword)
		if err == nil {
			return organic, nil
		}
		lastErr = err
		if !c.retry.ShouldRetry(err, attempt) {
			return nil, lastErr
		}
		metrics.IncAPIRetry()
		c.logger.Warn("ranking api request failed, retrying",
			zap.String("keyword", keyword),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		timer := time.NewTimer(c.retry.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("retry wait: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *Client) doSearch(ctx context.Context, keyword string) ([]organicResult, error) {
	body, err := json.Marshal(searchRequest{
		Query:    keyword,
		Country:  c.cfg.Country,
		Language: c.cfg.Language,
		Num:      c.cfg.Results,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	metrics.IncAPIRequest(resp.StatusCode)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}
	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return out.Organic, nil
}
