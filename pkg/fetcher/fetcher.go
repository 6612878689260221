// Package fetcher implements the paginated fetch engine: one HTTP GET
// per page, payload normalization into records, end-of-data detection,
// fixed inter-request delay and rate-limit backoff.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/donlluque/api-etl/pkg/cache"
	"github.com/donlluque/api-etl/pkg/record"
)

// Prometheus metrics for fetch operations.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apietl_requests_total",
		Help: "Total API requests by HTTP status",
	}, []string{"status"})

	fetchRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "apietl_request_duration_seconds",
		Help:    "API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	fetchPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apietl_pages_fetched_total",
		Help: "Total non-empty pages fetched",
	})

	fetchRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apietl_records_fetched_total",
		Help: "Total records collected across pages",
	})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apietl_errors_total",
		Help: "Total fetch errors by class",
	}, []string{"class"})

	fetchRateLimitRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apietl_rate_limit_retries_total",
		Help: "Total 429 responses retried with fixed backoff",
	})
)

// maxErrorBody limits how much of an error response body is carried
// in an HTTPError.
const maxErrorBody = 512

// Fetcher runs paginated fetches against a single endpoint.
type Fetcher struct {
	config  Config
	baseURL *url.URL
	cache   *cache.Manager
	logger  zerolog.Logger
}

// New creates a Fetcher, validating the configuration and applying
// defaults.
func New(cfg Config) (*Fetcher, error) {
	base, err := cfg.validate()
	if err != nil {
		return nil, err
	}

	return &Fetcher{
		config:  cfg,
		baseURL: base,
		cache:   cfg.Cache,
		logger:  log.With().Str("component", "fetcher").Logger(),
	}, nil
}

// Fetch runs the pagination loop to completion and returns all
// collected records in arrival order.
//
// The loop issues strictly sequential GETs, advancing the page number
// by exactly one per successful page. A page that normalizes to zero
// records stops pagination early with whatever has been collected. A
// 429 response waits RateLimitBackoff and retries the same page
// without consuming the iteration budget. Transport errors and other
// non-2xx statuses abort the run; no partial result is returned on
// failure.
func (f *Fetcher) Fetch(ctx context.Context) ([]record.Record, error) {
	items := make([]record.Record, 0)
	page := f.config.StartPage
	lastPage := f.config.StartPage + f.config.MaxPages - 1

	for i := 0; i < f.config.MaxPages; i++ {
		f.logger.Info().
			Int("page", page).
			Int("last_page", lastPage).
			Msg("Fetching page")

		body, err := f.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}

		records, err := f.decodePage(page, body)
		if err != nil {
			fetchErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
			return nil, fmt.Errorf("decode page %d: %w", page, err)
		}

		if len(records) == 0 {
			f.logger.Warn().
				Int("page", page).
				Msg("Page returned no records, stopping pagination")
			break
		}

		f.logger.Info().
			Int("page", page).
			Int("records", len(records)).
			Msg("Page retrieved")

		items = append(items, records...)
		fetchPagesTotal.Inc()
		fetchRecordsTotal.Add(float64(len(records)))
		page++

		if i < f.config.MaxPages-1 {
			if err := f.sleep(ctx, f.config.Sleep); err != nil {
				return nil, err
			}
		}
	}

	f.logger.Info().
		Int("total_records", len(items)).
		Msg("Fetch complete")

	return items, nil
}

// fetchPage returns the body of one page, retrying on 429 and
// consulting the optional cache.
func (f *Fetcher) fetchPage(ctx context.Context, page int) ([]byte, error) {
	params := f.pageParams(page)
	pageURL := *f.baseURL
	pageURL.RawQuery = params.Encode()

	cacheKey := cache.Key{URL: f.baseURL.String(), Params: params}
	if f.cache != nil {
		entry, err := f.cache.Get(ctx, cacheKey)
		if err == nil {
			f.logger.Debug().
				Int("page", page).
				Msg("Serving page from cache")
			return entry.Body, nil
		}
		if err != cache.ErrCacheMiss {
			f.logger.Warn().Err(err).Int("page", page).Msg("Cache get error")
		}
	}

	retries := 0
	for {
		status, body, err := f.doRequest(ctx, pageURL.String())
		if err != nil {
			fetchErrorsTotal.WithLabelValues(string(ErrorClassTransport)).Inc()
			fetchRequestsTotal.WithLabelValues("network_error").Inc()
			f.logger.Error().Err(err).Int("page", page).Msg("Request failed")
			return nil, &TransportError{Page: page, Err: err}
		}

		fetchRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()

		if status == http.StatusTooManyRequests {
			fetchErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			retries++
			if f.config.MaxRateLimitRetries > 0 && retries > f.config.MaxRateLimitRetries {
				return nil, fmt.Errorf("%w on page %d after %d attempts",
					ErrRateLimitRetriesExhausted, page, retries)
			}

			fetchRateLimitRetries.Inc()
			f.logger.Warn().
				Int("page", page).
				Int("retry", retries).
				Dur("backoff", f.config.RateLimitBackoff).
				Msg("Rate limited (429), backing off before retry")

			if err := f.sleep(ctx, f.config.RateLimitBackoff); err != nil {
				return nil, err
			}
			continue
		}

		if status >= 400 {
			fetchErrorsTotal.WithLabelValues(string(ErrorClassHTTP)).Inc()
			f.logger.Error().
				Int("page", page).
				Int("status", status).
				Msg("HTTP error")
			return nil, &HTTPError{Page: page, StatusCode: status, Body: truncate(body, maxErrorBody)}
		}

		if f.cache != nil {
			entry := cache.NewEntry(body, status, f.config.CacheTTL)
			if err := f.cache.Set(ctx, cacheKey, entry); err != nil {
				f.logger.Warn().Err(err).Int("page", page).Msg("Cache set error")
			}
		}

		return body, nil
	}
}

// doRequest issues a single GET with the configured headers and
// per-request timeout. This is the sole network call of the loop.
func (f *Fetcher) doRequest(ctx context.Context, url string) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for k, v := range f.config.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.config.HTTPClient.Do(req)
	fetchRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read body: %w", err)
	}

	return resp.StatusCode, body, nil
}

// pageParams merges the base parameters with the pagination parameter,
// which overrides any same-named base entry.
func (f *Fetcher) pageParams(page int) url.Values {
	params := url.Values{}
	for k, vs := range f.config.BaseParams {
		params[k] = append([]string(nil), vs...)
	}
	params.Set(f.config.PageParam, strconv.Itoa(page))
	return params
}

// decodePage normalizes a page body into records. Accepted shapes:
// a JSON array of records, or an object whose "items" key holds an
// array. Objects without usable items and any other JSON shape yield
// an empty page (logged, not an error).
func (f *Fetcher) decodePage(page int, body []byte) ([]record.Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("response is not valid JSON")
	}

	switch trimmed[0] {
	case '[':
		var records []record.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, err
		}

		items, ok := obj["items"]
		if ok {
			items = bytes.TrimSpace(items)
		}
		if !ok || len(items) == 0 || items[0] != '[' {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			f.logger.Warn().
				Int("page", page).
				Strs("response_keys", keys).
				Msg("Object response without usable 'items' key, treating page as empty")
			return nil, nil
		}

		var records []record.Record
		if err := json.Unmarshal(items, &records); err != nil {
			return nil, err
		}
		return records, nil

	default:
		f.logger.Warn().
			Int("page", page).
			Msg("Unexpected response shape, treating page as empty")
		return nil, nil
	}
}

// sleep waits for d, honoring context cancellation.
func (f *Fetcher) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-time.After(d):
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
