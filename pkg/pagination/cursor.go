package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	// ErrTooManyPages is returned when a walk exceeds Config.MaxPages.
	ErrTooManyPages = errors.New("page limit exceeded")
)

var (
	pagesFetched = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokedex_pagination_pages",
		Help:    "Pages fetched per pagination walk",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
	})

	walksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_pagination_walks_total",
		Help: "Pagination walks by final state",
	}, []string{"state"})
)

// Config holds walker configuration.
type Config struct {
	// Stop ends the walk without error when the fetcher returns an error
	// matching it (errors.Is). The items collected so far are returned.
	Stop error

	// MaxPages aborts the walk with ErrTooManyPages once exceeded (0 = unlimited).
	MaxPages int
}

// Page is one page of results.
type Page[T any] struct {
	Items []T
	// NextToken is the continuation token; empty on the last page.
	NextToken string
}

// PageFetcher fetches a single page. token is empty for the first page.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, token string) (Page[T], error)
}

// FetcherFunc adapts a function to PageFetcher.
type FetcherFunc[T any] func(ctx context.Context, token string) (Page[T], error)

// FetchPage calls f.
func (f FetcherFunc[T]) FetchPage(ctx context.Context, token string) (Page[T], error) {
	return f(ctx, token)
}

// State is the walker's position in the page sequence.
type State string

const (
	StateFetchingFirstPage State = "fetching_first_page"
	StateFetchingNextPage  State = "fetching_next_page"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// Result is the outcome of a walk.
type Result[T any] struct {
	Items []T
	Pages int
	State State
}

// Collect fetches every page and returns the concatenated items in arrival order.
func Collect[T any](ctx context.Context, fetcher PageFetcher[T], cfg Config) ([]T, error) {
	res, err := Walk(ctx, fetcher, cfg)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Walk is Collect with page accounting. On error the returned Result holds no
// items; partial pages are discarded.
func Walk[T any](ctx context.Context, fetcher PageFetcher[T], cfg Config) (Result[T], error) {
	start := time.Now()

	items := make([]T, 0)
	state := StateFetchingFirstPage
	token := ""
	pages := 0

	fail := func(err error) (Result[T], error) {
		walksTotal.WithLabelValues(string(StateFailed)).Inc()
		log.Debug().
			Err(err).
			Int("pages", pages).
			Msg("Pagination walk failed")
		return Result[T]{Pages: pages, State: StateFailed}, err
	}

	for state != StateDone {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		if cfg.MaxPages > 0 && pages >= cfg.MaxPages {
			return fail(fmt.Errorf("%w: %d", ErrTooManyPages, cfg.MaxPages))
		}

		page, err := fetcher.FetchPage(ctx, token)
		if err != nil {
			if cfg.Stop != nil && errors.Is(err, cfg.Stop) {
				state = StateDone
				break
			}
			return fail(err)
		}

		pages++
		items = append(items, page.Items...)

		log.Debug().
			Int("page", pages).
			Int("count", len(page.Items)).
			Int("total", len(items)).
			Bool("has_next", page.NextToken != "").
			Msg("Page fetched")

		if page.NextToken == "" {
			state = StateDone
		} else {
			token = page.NextToken
			state = StateFetchingNextPage
		}
	}

	pagesFetched.Observe(float64(pages))
	walksTotal.WithLabelValues(string(StateDone)).Inc()

	log.Debug().
		Int("pages", pages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Pagination walk complete")

	return Result[T]{Items: items, Pages: pages, State: StateDone}, nil
}
