package fetcher

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/donlluque/api-etl/pkg/cache"
)

// Doer issues a single HTTP request. *http.Client satisfies it; tests
// may inject their own implementation.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the fetch configuration for one run. It is validated
// by New and never mutated afterwards.
type Config struct {
	// BaseURL is the API endpoint URL (without pagination parameter).
	BaseURL string

	// Headers are sent with every request (authentication included).
	Headers map[string]string

	// BaseParams are the base query parameters merged into every
	// request. The pagination parameter overrides a same-named entry.
	BaseParams url.Values

	// PageParam is the name of the pagination query parameter.
	PageParam string

	// StartPage is the first page number to request (>= 1).
	StartPage int

	// MaxPages is the maximum number of pages to fetch (>= 1).
	MaxPages int

	// Sleep is the delay between consecutive page requests.
	Sleep time.Duration

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// RateLimitBackoff is the fixed wait applied after an HTTP 429
	// before retrying the same page.
	RateLimitBackoff time.Duration

	// MaxRateLimitRetries caps 429 retries per page. Zero retries
	// forever, matching the historical behavior of the tool.
	MaxRateLimitRetries int

	// HTTPClient performs the requests. Defaults to an *http.Client
	// with Timeout applied.
	HTTPClient Doer

	// Cache is an optional page cache. When set, successful page
	// bodies are served from and stored into it with CacheTTL.
	Cache *cache.Manager

	// CacheTTL is the lifetime of cached pages.
	CacheTTL time.Duration
}

// DefaultConfig returns a configuration with the standard pagination
// defaults for the given endpoint.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		PageParam:        "page",
		StartPage:        1,
		MaxPages:         1,
		Sleep:            500 * time.Millisecond,
		Timeout:          30 * time.Second,
		RateLimitBackoff: 5 * time.Second,
	}
}

// validate checks the configuration and fills in defaults.
func (cfg *Config) validate() (*url.URL, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https (got %q)", cfg.BaseURL)
	}

	// A query string in the URL itself becomes part of the base params;
	// explicit base params win on collision.
	if base.RawQuery != "" {
		urlParams := base.Query()
		if cfg.BaseParams == nil {
			cfg.BaseParams = url.Values{}
		}
		for k, vs := range urlParams {
			if _, ok := cfg.BaseParams[k]; !ok {
				cfg.BaseParams[k] = vs
			}
		}
		base.RawQuery = ""
	}

	if cfg.StartPage == 0 {
		cfg.StartPage = 1
	}
	if cfg.StartPage < 1 {
		return nil, fmt.Errorf("start page must be >= 1 (got %d)", cfg.StartPage)
	}

	if cfg.MaxPages < 1 {
		return nil, fmt.Errorf("max pages must be >= 1 (got %d)", cfg.MaxPages)
	}

	if cfg.Sleep < 0 {
		return nil, fmt.Errorf("sleep must be >= 0 (got %v)", cfg.Sleep)
	}

	if cfg.PageParam == "" {
		cfg.PageParam = "page"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimitBackoff <= 0 {
		cfg.RateLimitBackoff = 5 * time.Second
	}
	if cfg.MaxRateLimitRetries < 0 {
		return nil, fmt.Errorf("max rate limit retries must be >= 0 (got %d)", cfg.MaxRateLimitRetries)
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	if cfg.Cache != nil && cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	return base, nil
}
