// Package websearch is the default web search provider: a client for
// SearxNG-compatible JSON search APIs. It implements
// retrieve.WebSearcher.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fixmate/kbsearch/internal/kberrors"
	"github.com/fixmate/kbsearch/internal/retrieve"
)

// Default client configuration values.
const (
	DefaultTimeout   = 8 * time.Second
	DefaultCacheSize = 512
	DefaultCacheTTL  = 5 * time.Minute
)

// Config holds client configuration.
type Config struct {
	// Endpoint is the search API base URL.
	Endpoint string
	// APIKey authenticates requests. Empty for open instances.
	APIKey string
	// Timeout is the per-call HTTP timeout.
	Timeout time.Duration
	// CacheSize is the LRU size for response caching.
	CacheSize int
	// CacheTTL is how long a cached response stays fresh.
	CacheTTL time.Duration
}

// searchResponse is the SearxNG /search JSON response body.
type searchResponse struct {
	Results []searchResult `json:"results"`
}

// searchResult is one raw result entry.
type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// cachedHits is one cache entry with its store time.
type cachedHits struct {
	hits     []retrieve.WebHit
	storedAt time.Time
}

// Client calls a SearxNG-compatible search API. Long-lived and safe
// for concurrent use; responses are cached in an LRU with TTL.
type Client struct {
	httpClient *http.Client
	config     Config
	cache      *lru.Cache[string, cachedHits]
}

// New creates a search client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, kberrors.New(kberrors.ErrCodeProviderMissing, "web search endpoint is required", nil).
			WithSuggestion("set web.endpoint in .kbsearch.yaml or KBSEARCH_WEB_ENDPOINT")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	cache, _ := lru.New[string, cachedHits](cfg.CacheSize)
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		cache:      cache,
	}, nil
}

// Search runs one search call. Throttling (429) surfaces as a
// retryable error; bad credentials (401/403) as a configuration error.
// Implements retrieve.WebSearcher.
func (c *Client) Search(ctx context.Context, query string, params retrieve.WebParams) ([]retrieve.WebHit, error) {
	cacheKey := query + "|" + strconv.Itoa(params.MaxResults)
	if entry, ok := c.cache.Get(cacheKey); ok {
		if time.Since(entry.storedAt) < c.config.CacheTTL {
			return entry.hits, nil
		}
		c.cache.Remove(cacheKey)
	}

	endpoint := c.config.Endpoint + "/search?" + url.Values{
		"q":      {query},
		"format": {"json"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, kberrors.InternalError("create search request", err)
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, kberrors.TransientError("web search request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		// Fall through to decoding.
	case http.StatusTooManyRequests:
		return nil, kberrors.RateLimitError("web search throttled", nil).
			WithDetail("query", query)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, kberrors.New(kberrors.ErrCodeBadCredentials, "web search rejected credentials", nil).
			WithSuggestion("check web.api_key or KBSEARCH_WEB_API_KEY")
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, kberrors.TransientError(
			fmt.Sprintf("web search returned status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, kberrors.TransientError("decode search response", err)
	}

	hits := make([]retrieve.WebHit, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if params.MaxResults > 0 && len(hits) >= params.MaxResults {
			break
		}
		hits = append(hits, retrieve.WebHit{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Domain:  hostOf(r.URL),
		})
	}

	c.cache.Add(cacheKey, cachedHits{hits: hits, storedAt: time.Now()})
	return hits, nil
}

// hostOf extracts the host from a URL, empty on parse failure.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
