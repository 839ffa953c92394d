// Package client provides the Pokédex search API client: request building,
// response classification and paginated search aggregation.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pokedex_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// ChaosParam is the query parameter appended to every request when fault
// injection is enabled.
const (
	ChaosParam = "chaos"
	chaosValue = "true"
)

// Client is the Pokédex search API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    http.Header
	chaos      atomic.Bool
	history    HistoryRecorder
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the absolute API root, e.g. "http://localhost:8080/api/api/pokemon".
	BaseURL string

	// User-Agent header sent with every request
	UserAgent string

	// Timeout for a single page request
	Timeout time.Duration

	// Chaos appends chaos=true to every request so the server injects faults.
	Chaos bool

	// History receives one entry per completed search (optional)
	History HistoryRecorder
}

// DefaultConfig returns a default configuration for the given API root.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "pokedex-client/0.1.0",
		Timeout:   30 * time.Second,
		Chaos:     false,
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute http(s) url (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")
	headers.Set("User-Agent", cfg.UserAgent)

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: headers,
		history: cfg.History,
		config:  cfg,
		logger:  log.With().Str("component", "pokedex-client").Logger(),
	}
	c.chaos.Store(cfg.Chaos)

	return c, nil
}

// SetChaos enables or disables fault injection for all subsequent requests
// made by this client.
func (c *Client) SetChaos(enabled bool) {
	c.chaos.Store(enabled)
	c.logger.Info().Bool("chaos", enabled).Msg("Fault injection toggled")
}

// ChaosEnabled reports whether requests currently carry the chaos marker.
func (c *Client) ChaosEnabled() bool {
	return c.chaos.Load()
}

// BuildURL returns the absolute request URL for path and params, including
// the chaos marker when enabled.
func (c *Client) BuildURL(path string, params Params) string {
	u := c.baseURL + path

	if qs := params.Encode(); qs != "" {
		u += "?" + qs
	}

	if c.chaos.Load() {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + ChaosParam + "=" + chaosValue
	}

	return u
}

// Request performs a GET against path and decodes a successful JSON body into out.
//
// A 404 returns ErrNotFound. A 500 returns an *APIError carrying the message of
// the server's error payload. Any other non-2xx status returns a generic
// *APIError. Transport failures are returned as *APIError wrapping the
// underlying error.
func (c *Client) Request(ctx context.Context, path string, params Params, out any) error {
	rawURL := c.BuildURL(path, params)
	endpoint := endpointLabel(path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for key, values := range c.headers {
		req.Header[key] = append([]string(nil), values...)
	}

	c.logger.Debug().
		Str("url", rawURL).
		Msg("Executing request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return &APIError{ErrorClass: ErrorClassNetwork, Err: err}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	switch class := classifyStatus(resp.StatusCode); class {
	case "":
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassFailure)).Inc()
			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassFailure,
				Message:    "decode response",
				Err:        err,
			}
		}
		return nil

	case ErrorClassNotFound:
		c.logger.Debug().Str("endpoint", endpoint).Msg("No result")
		return ErrNotFound

	case ErrorClassServer:
		errorsTotal.WithLabelValues(string(class)).Inc()

		var payload ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Undecodable server error payload")
			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: class,
				Message:    resp.Status,
				Err:        err,
			}
		}

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error", payload.Error).
			Msg("Server error")

		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    payload.Error,
		}

	default:
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Request failed")

		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    unhandledMessage,
		}
	}
}

// classifyStatus maps a response status to an error class. Success maps to "".
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusNotFound:
		return ErrorClassNotFound
	case status == http.StatusInternalServerError:
		return ErrorClassServer
	case status >= 200 && status < 300:
		return ""
	default:
		return ErrorClassFailure
	}
}

// endpointLabel keeps metric cardinality bounded by dropping free-text path
// segments such as search queries.
func endpointLabel(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "/"
	}
	first, _, _ := strings.Cut(trimmed, "/")
	return "/" + first
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}
