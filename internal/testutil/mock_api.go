// Package testutil provides testing utilities for the api-etl tool.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines one scripted response of a mock API server.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a scripted mock of a paginated REST endpoint. Responses
// are served in request order; requests past the end of the script
// get an empty JSON array.
type MockAPI struct {
	server    *httptest.Server
	mu        sync.Mutex
	responses []MockResponse

	requestCount int
	queries      []url.Values
	lastHeader   http.Header
}

// NewMockAPI creates a mock server serving the given responses in order.
func NewMockAPI(responses ...MockResponse) *MockAPI {
	mock := &MockAPI{responses: responses}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		idx := mock.requestCount
		mock.requestCount++
		mock.queries = append(mock.queries, r.URL.Query())
		mock.lastHeader = r.Header.Clone()
		mock.mu.Unlock()

		if idx >= len(mock.responses) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("[]"))
			return
		}

		resp := mock.responses[idx]
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		w.Header().Set("Content-Type", "application/json")
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}

		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		w.Write([]byte(resp.Body))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// RequestCount returns the number of requests received.
func (m *MockAPI) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// Query returns the query parameters of the i-th request.
func (m *MockAPI) Query(i int) url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.queries) {
		return nil
	}
	return m.queries[i]
}

// LastHeader returns the headers of the most recent request.
func (m *MockAPI) LastHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeader
}
