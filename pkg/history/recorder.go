// Package history keeps a capped, most-recent-first log of completed searches
// in a Redis list. Entries are informational only and are never used to
// answer a search.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultKey is the Redis list holding history entries.
const DefaultKey = "pokedex:history"

// DefaultMaxEntries caps the list length.
const DefaultMaxEntries = 100

var (
	// ErrInvalidEntry indicates a stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid history entry")
)

var historyWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pokedex_history_writes_total",
	Help: "Search history writes by result",
}, []string{"result"})

// Entry describes one completed search.
type Entry struct {
	Query    string        `json:"query"`
	Results  int           `json:"results"`
	Pages    int           `json:"pages"`
	Chaos    bool          `json:"chaos"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
	// Error is the failure message; empty when the search succeeded.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the search ended with an error.
func (e Entry) Failed() bool {
	return e.Error != ""
}

// Config holds recorder configuration.
type Config struct {
	Key        string
	MaxEntries int
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() Config {
	return Config{
		Key:        DefaultKey,
		MaxEntries: DefaultMaxEntries,
	}
}

// Recorder stores search history in Redis.
type Recorder struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger
}

// NewRecorder creates a recorder. Zero config fields take their defaults.
func NewRecorder(redisClient *redis.Client, cfg Config) *Recorder {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}

	return &Recorder{
		redis:  redisClient,
		config: cfg,
		logger: log.With().Str("component", "history").Logger(),
	}
}

// Record prepends an entry and trims the list to MaxEntries.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if entry.At.IsZero() {
		entry.At = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		historyWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal history entry: %w", err)
	}

	pipe := r.redis.TxPipeline()
	pipe.LPush(ctx, r.config.Key, data)
	pipe.LTrim(ctx, r.config.Key, 0, int64(r.config.MaxEntries-1))
	if _, err := pipe.Exec(ctx); err != nil {
		historyWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("store history entry in redis: %w", err)
	}

	historyWrites.WithLabelValues("ok").Inc()
	r.logger.Debug().
		Str("query", entry.Query).
		Int("results", entry.Results).
		Msg("Search recorded")

	return nil
}

// Recent returns up to n entries, newest first. n <= 0 returns all stored entries.
func (r *Recorder) Recent(ctx context.Context, n int) ([]Entry, error) {
	stop := int64(-1)
	if n > 0 {
		stop = int64(n - 1)
	}

	raw, err := r.redis.LRange(ctx, r.config.Key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Clear removes all history.
func (r *Recorder) Clear(ctx context.Context) error {
	if err := r.redis.Del(ctx, r.config.Key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
