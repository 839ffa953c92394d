package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/pokedex-client/internal/testutil"
	"github.com/Sternrassler/pokedex-client/pkg/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pikachu  = testutil.Pokemon{ID: 25, Name: "Pikachu", Classification: "Mouse"}
	raichu   = testutil.Pokemon{ID: 26, Name: "Raichu", Classification: "Mouse"}
	pichu    = testutil.Pokemon{ID: 172, Name: "Pichu", Classification: "Tiny Mouse"}
	expected = map[int]Pokemon{
		25:  {ID: 25, Name: "Pikachu", Classification: "Mouse"},
		26:  {ID: 26, Name: "Raichu", Classification: "Mouse"},
		172: {ID: 172, Name: "Pichu", Classification: "Tiny Mouse"},
	}
)

func newTestClient(t *testing.T, baseURL string, chaos bool) *Client {
	t.Helper()

	cfg := DefaultConfig(baseURL)
	cfg.Chaos = chaos
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		errorMsg string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("http://localhost:8080/api/api/pokemon"),
		},
		{
			name:     "empty base url",
			config:   DefaultConfig(""),
			errorMsg: "base url is required",
		},
		{
			name:     "relative base url",
			config:   DefaultConfig("/api/api/pokemon"),
			errorMsg: `base url must be an absolute http(s) url (got "/api/api/pokemon")`,
		},
		{
			name:     "unsupported scheme",
			config:   DefaultConfig("ftp://example.com/pokemon"),
			errorMsg: `base url must be an absolute http(s) url (got "ftp://example.com/pokemon")`,
		},
		{
			name: "empty user agent",
			config: Config{
				BaseURL: "http://localhost:8080",
				Timeout: time.Second,
			},
			errorMsg: "user-agent is required",
		},
		{
			name: "zero timeout",
			config: Config{
				BaseURL:   "http://localhost:8080",
				UserAgent: "test/1.0",
			},
			errorMsg: "timeout must be > 0 (got 0s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errorMsg, err.Error())
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("http://localhost:8080/api/api/pokemon")

	assert.Equal(t, "http://localhost:8080/api/api/pokemon", cfg.BaseURL)
	assert.False(t, cfg.Chaos)
	assert.NotEmpty(t, cfg.UserAgent)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestBuildURL(t *testing.T) {
	c := newTestClient(t, "http://pokedex.local/api/api/pokemon/", false)

	assert.Equal(t, "http://pokedex.local/api/api/pokemon", c.BaseURL())
	assert.Equal(t, "http://pokedex.local/api/api/pokemon/search/pika", c.BuildURL("/search/pika", nil))
	assert.Equal(t, "http://pokedex.local/api/api/pokemon/search/pika?page=abc", c.BuildURL("/search/pika", Params{"page": "abc"}))
	assert.Equal(t, "http://pokedex.local/api/api/pokemon/search/pika", c.BuildURL("/search/pika", Params{"page": nil}))

	c.SetChaos(true)
	assert.True(t, c.ChaosEnabled())
	assert.Equal(t, "http://pokedex.local/api/api/pokemon/search/pika?chaos=true", c.BuildURL("/search/pika", nil))
	assert.Equal(t, "http://pokedex.local/api/api/pokemon/search/pika?page=abc&chaos=true", c.BuildURL("/search/pika", Params{"page": "abc"}))
}

func TestSearchPath(t *testing.T) {
	assert.Equal(t, "/search/pika", SearchPath("pika"))
	assert.Equal(t, "/search/mr%20mime", SearchPath("mr mime"))
	assert.Equal(t, "/search/a%2Fb", SearchPath("a/b"))
}

func TestRequest_Headers(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"pokemon": []}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, false)
	require.NoError(t, c.Request(context.Background(), "/search/x", nil, &SearchResults{}))

	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "pokedex-client/0.1.0", got.Get("User-Agent"))
}

func TestRequest_Classification(t *testing.T) {
	tests := []struct {
		name    string
		resp    testutil.MockResponse
		outcome Outcome
		message string
	}{
		{"ok", testutil.NewPageResponse("", pikachu), OutcomeOK, ""},
		{"not found", testutil.NewNotFoundResponse(), OutcomeNotFound, "not found"},
		{"server error", testutil.NewServerErrorResponse("boom"), OutcomeServerError, "boom"},
		{"service unavailable", testutil.NewStatusResponse(http.StatusServiceUnavailable), OutcomeFailure, "unhandled error"},
		{"bad request", testutil.NewStatusResponse(http.StatusBadRequest), OutcomeFailure, "unhandled error"},
		{"undecodable success body", testutil.MockResponse{StatusCode: http.StatusOK, Body: "not json"}, OutcomeFailure, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockPokedex()
			defer mock.Close()
			mock.SetResponse("/search/pika", tt.resp)

			c := newTestClient(t, mock.BaseURL(), false)

			var results SearchResults
			err := c.Request(context.Background(), "/search/pika", nil, &results)

			assert.Equal(t, tt.outcome, Classify(err))
			if tt.outcome == OutcomeOK {
				require.NoError(t, err)
				assert.Equal(t, []Pokemon{expected[25]}, results.Pokemon)
				return
			}
			require.Error(t, err)
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}
}

func TestRequest_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	c := newTestClient(t, baseURL, false)
	err := c.Request(context.Background(), "/search/pika", nil, &SearchResults{})

	require.Error(t, err)
	assert.Equal(t, OutcomeNetwork, Classify(err))

	var urlErr *url.Error
	assert.True(t, errors.As(err, &urlErr), "transport error should stay reachable")
}

func TestSearch_SinglePage(t *testing.T) {
	mock := testutil.NewMockPokedex()
	defer mock.Close()
	mock.SetPages("pika", map[string]testutil.MockResponse{
		"": testutil.NewPageResponse("", pikachu, pichu),
	})

	c := newTestClient(t, mock.BaseURL(), false)
	got, err := c.Search(context.Background(), "pika")

	require.NoError(t, err)
	assert.Equal(t, []Pokemon{expected[25], expected[172]}, got)
	assert.Equal(t, 1, mock.GetRequestCount())
	assert.Empty(t, mock.Requests()[0].RawQuery)
}

func TestSearch_MultiPage(t *testing.T) {
	mock := testutil.NewMockPokedex()
	defer mock.Close()

	// tokens are opaque and must round-trip unchanged
	mock.SetPages("pika", map[string]testutil.MockResponse{
		"":         testutil.NewPageResponse("a+b/c==", pikachu),
		"a+b/c==":  testutil.NewPageResponse("page 3&x", raichu),
		"page 3&x": testutil.NewPageResponse("", pichu),
	})

	c := newTestClient(t, mock.BaseURL(), false)
	got, err := c.Search(context.Background(), "pika")

	require.NoError(t, err)
	assert.Equal(t, []Pokemon{expected[25], expected[26], expected[172]}, got)

	requests := mock.Requests()
	require.Len(t, requests, 3)
	assert.Empty(t, requests[0].Query.Get("page"))
	assert.Equal(t, "a+b/c==", requests[1].Query.Get("page"))
	assert.Equal(t, "page 3&x", requests[2].Query.Get("page"))
	for _, r := range requests {
		assert.Equal(t, testutil.APIPrefix+"/search/pika", r.Path)
	}
}

func TestSearch_ExampleScenario(t *testing.T) {
	mock := testutil.NewMockPokedex()
	defer mock.Close()
	mock.SetPages("pika", map[string]testutil.MockResponse{
		"":    testutil.NewPageResponse("abc", pikachu),
		"abc": testutil.NewPageResponse("", raichu),
	})

	c := newTestClient(t, mock.BaseURL(), false)
	got, err := c.Search(context.Background(), "pika")

	require.NoError(t, err)
	assert.Equal(t, []Pokemon{expected[25], expected[26]}, got)
	assert.Equal(t, 2, mock.GetRequestCount())
	assert.Equal(t, "page=abc", mock.Requests()[1].RawQuery)
}

func TestSearch_NotFound(t *testing.T) {
	t.Run("first page", func(t *testing.T) {
		mock := testutil.NewMockPokedex()
		defer mock.Close()

		c := newTestClient(t, mock.BaseURL(), false)
		got, err := c.Search(context.Background(), "missingno")

		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		assert.Equal(t, 1, mock.GetRequestCount())
	})

	t.Run("mid pagination keeps earlier pages", func(t *testing.T) {
		mock := testutil.NewMockPokedex()
		defer mock.Close()
		mock.SetPages("pika", map[string]testutil.MockResponse{
			"":    testutil.NewPageResponse("abc", pikachu),
			"abc": testutil.NewPageResponse("def", raichu),
			"def": testutil.NewNotFoundResponse(),
		})

		c := newTestClient(t, mock.BaseURL(), false)
		got, err := c.Search(context.Background(), "pika")

		require.NoError(t, err)
		assert.Equal(t, []Pokemon{expected[25], expected[26]}, got)
		assert.Equal(t, 3, mock.GetRequestCount())
	})
}

func TestSearch_FailureDiscardsPartialResults(t *testing.T) {
	tests := []struct {
		name    string
		failing testutil.MockResponse
		message string
		outcome Outcome
	}{
		{"server error", testutil.NewServerErrorResponse("boom"), "boom", OutcomeServerError},
		{"generic failure", testutil.NewStatusResponse(http.StatusBadGateway), "unhandled error", OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockPokedex()
			defer mock.Close()
			mock.SetPages("pika", map[string]testutil.MockResponse{
				"":    testutil.NewPageResponse("abc", pikachu),
				"abc": tt.failing,
			})

			c := newTestClient(t, mock.BaseURL(), false)
			got, err := c.Search(context.Background(), "pika")

			require.Error(t, err)
			assert.Nil(t, got)
			assert.Equal(t, tt.message, err.Error())
			assert.Equal(t, tt.outcome, Classify(err))
			assert.Equal(t, 2, mock.GetRequestCount())
		})
	}
}

func TestSearch_Chaos(t *testing.T) {
	pages := map[string]testutil.MockResponse{
		"":    testutil.NewPageResponse("abc", pikachu),
		"abc": testutil.NewPageResponse("", raichu),
	}

	t.Run("enabled", func(t *testing.T) {
		mock := testutil.NewMockPokedex()
		defer mock.Close()
		mock.SetPages("pika", pages)

		c := newTestClient(t, mock.BaseURL(), true)
		_, err := c.Search(context.Background(), "pika")
		require.NoError(t, err)

		requests := mock.Requests()
		require.Len(t, requests, 2)
		for _, r := range requests {
			assert.Equal(t, "true", r.Query.Get(ChaosParam), "request %q", r.RawQuery)
		}
		assert.Equal(t, "chaos=true", requests[0].RawQuery)
		assert.Equal(t, "page=abc&chaos=true", requests[1].RawQuery)
	})

	t.Run("disabled", func(t *testing.T) {
		mock := testutil.NewMockPokedex()
		defer mock.Close()
		mock.SetPages("pika", pages)

		c := newTestClient(t, mock.BaseURL(), false)
		_, err := c.Search(context.Background(), "pika")
		require.NoError(t, err)

		for _, r := range mock.Requests() {
			assert.NotContains(t, r.RawQuery, ChaosParam)
		}
	})

	t.Run("toggled between searches", func(t *testing.T) {
		mock := testutil.NewMockPokedex()
		defer mock.Close()
		mock.SetPages("pika", pages)

		c := newTestClient(t, mock.BaseURL(), false)
		_, err := c.Search(context.Background(), "pika")
		require.NoError(t, err)

		c.SetChaos(true)
		_, err = c.Search(context.Background(), "pika")
		require.NoError(t, err)

		requests := mock.Requests()
		require.Len(t, requests, 4)
		assert.False(t, strings.Contains(requests[1].RawQuery, ChaosParam))
		assert.True(t, strings.Contains(requests[2].RawQuery, ChaosParam))
	})
}

func TestSearch_EscapesQuery(t *testing.T) {
	mock := testutil.NewMockPokedex()
	defer mock.Close()
	mock.SetPages("mr mime", map[string]testutil.MockResponse{
		"": testutil.NewPageResponse("", testutil.Pokemon{ID: 122, Name: "Mr. Mime", Classification: "Barrier"}),
	})

	c := newTestClient(t, mock.BaseURL(), false)
	got, err := c.Search(context.Background(), "mr mime")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mr. Mime", got[0].Name)
}

func TestSearch_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockPokedex()
	defer mock.Close()
	mock.SetPages("pika", map[string]testutil.MockResponse{
		"": testutil.NewPageResponse("abc", pikachu),
	})

	c := newTestClient(t, mock.BaseURL(), false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := c.Search(ctx, "pika")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, mock.GetRequestCount())
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, entry history.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return f.err
}

func TestSearch_RecordsHistory(t *testing.T) {
	mock := testutil.NewMockPokedex()
	defer mock.Close()
	mock.SetPages("pika", map[string]testutil.MockResponse{
		"":    testutil.NewPageResponse("abc", pikachu),
		"abc": testutil.NewPageResponse("", raichu),
	})
	mock.SetPages("boom", map[string]testutil.MockResponse{
		"": testutil.NewServerErrorResponse("boom"),
	})

	recorder := &fakeRecorder{}
	cfg := DefaultConfig(mock.BaseURL())
	cfg.Chaos = true
	cfg.History = recorder
	c, err := New(cfg)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "pika")
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "boom")
	require.Error(t, err)

	require.Len(t, recorder.entries, 2)
	assert.Equal(t, "pika", recorder.entries[0].Query)
	assert.Equal(t, 2, recorder.entries[0].Results)
	assert.Equal(t, 2, recorder.entries[0].Pages)
	assert.True(t, recorder.entries[0].Chaos)
	assert.False(t, recorder.entries[0].Failed())
	assert.Equal(t, "boom", recorder.entries[1].Error)
	assert.Equal(t, 0, recorder.entries[1].Results)
}

func TestSearch_HistoryFailureDoesNotFailSearch(t *testing.T) {
	mock := testutil.NewMockPokedex()
	defer mock.Close()
	mock.SetPages("pika", map[string]testutil.MockResponse{
		"": testutil.NewPageResponse("", pikachu),
	})

	cfg := DefaultConfig(mock.BaseURL())
	cfg.History = &fakeRecorder{err: errors.New("redis down")}
	c, err := New(cfg)
	require.NoError(t, err)

	got, err := c.Search(context.Background(), "pika")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
