// Package testutil provides testing utilities for the Pokédex client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the path prefix the mock serves, matching the real deployment.
const APIPrefix = "/api/api/pokemon"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request received by the mock.
type RecordedRequest struct {
	Path     string
	RawQuery string
	Query    url.Values
	Header   http.Header
}

// MockPokedex is a configurable mock search API.
type MockPokedex struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	requests []RecordedRequest
}

// NewMockPokedex creates a new mock server. Unconfigured paths answer 404.
func NewMockPokedex() *MockPokedex {
	mock := &MockPokedex{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Query:    r.URL.Query(),
			Header:   r.Header.Clone(),
		})
		handler, exists := mock.handlers[strings.TrimPrefix(r.URL.Path, APIPrefix)]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.WriteHeader(http.StatusNotFound)
	}))

	return mock
}

// URL returns the mock server root URL.
func (m *MockPokedex) URL() string {
	return m.server.URL
}

// BaseURL returns the API root a client should be configured with.
func (m *MockPokedex) BaseURL() string {
	return m.server.URL + APIPrefix
}

// Close shuts down the mock server.
func (m *MockPokedex) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockPokedex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler for a path relative to APIPrefix.
func (m *MockPokedex) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockPokedex) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetPages serves a paged search for query. pages is keyed by the page token,
// with "" for the first page. A token without an entry answers 404.
func (m *MockPokedex) SetPages(query string, pages map[string]MockResponse) {
	m.SetHandler("/search/"+query, func(w http.ResponseWriter, r *http.Request) {
		resp, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeResponse(w, resp)
	})
}

// Requests returns a copy of every request received, in order.
func (m *MockPokedex) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockPokedex) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// Pokemon is the wire shape of a search hit.
type Pokemon struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Classification string `json:"classification"`
}

// NewPageResponse creates a 200 OK search page. An empty next omits nextPage.
func NewPageResponse(next string, pokemon ...Pokemon) MockResponse {
	body := struct {
		Pokemon  []Pokemon `json:"pokemon"`
		NextPage string    `json:"nextPage,omitempty"`
	}{Pokemon: pokemon, NextPage: next}
	if body.Pokemon == nil {
		body.Pokemon = []Pokemon{}
	}

	data, _ := json.Marshal(body)
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(data),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusNotFound}
}

// NewServerErrorResponse creates a 500 response carrying message.
func NewServerErrorResponse(message string) MockResponse {
	data, _ := json.Marshal(map[string]string{"error": message})
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       string(data),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewStatusResponse creates a bare response with the given status.
func NewStatusResponse(status int) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       `{"message": "ignored"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
