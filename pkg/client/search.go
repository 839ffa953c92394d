package client

import (
	"context"
	"net/url"
	"time"

	"github.com/Sternrassler/pokedex-client/pkg/history"
	"github.com/Sternrassler/pokedex-client/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchPages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokedex_search_pages",
		Help:    "Pages fetched per search",
		Buckets: []float64{1, 2, 3, 5, 10, 20},
	})

	searchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokedex_search_results",
		Help:    "Pokémon returned per successful search",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})
)

// PageParam carries the continuation token on follow-up requests.
const PageParam = "page"

// HistoryRecorder receives one entry per completed search.
type HistoryRecorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// SearchPath returns the request path for a free-text query.
func SearchPath(query string) string {
	return "/search/" + url.PathEscape(query)
}

// FetchPage requests one page of search results. An empty token requests the
// first page.
func (c *Client) FetchPage(ctx context.Context, query, token string) (pagination.Page[Pokemon], error) {
	params := Params{}
	if token != "" {
		params[PageParam] = token
	}

	var results SearchResults
	if err := c.Request(ctx, SearchPath(query), params, &results); err != nil {
		return pagination.Page[Pokemon]{}, err
	}

	return pagination.Page[Pokemon]{
		Items:     results.Pokemon,
		NextToken: results.NextPage,
	}, nil
}

// Search returns every Pokémon matching query across all result pages, in
// arrival order.
//
// A 404 ends the search and returns what was collected before it. Any other
// failure aborts the search and discards the collected pages.
func (c *Client) Search(ctx context.Context, query string) ([]Pokemon, error) {
	start := time.Now()

	fetcher := pagination.FetcherFunc[Pokemon](func(ctx context.Context, token string) (pagination.Page[Pokemon], error) {
		return c.FetchPage(ctx, query, token)
	})

	res, err := pagination.Walk[Pokemon](ctx, fetcher, pagination.Config{Stop: ErrNotFound})

	c.record(ctx, history.Entry{
		Query:    query,
		Results:  len(res.Items),
		Pages:    res.Pages,
		Chaos:    c.ChaosEnabled(),
		Duration: time.Since(start),
		At:       start,
		Error:    errorString(err),
	})

	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("query", query).
			Int("pages", res.Pages).
			Str("outcome", Classify(err).String()).
			Msg("Search failed")
		return nil, err
	}

	searchPages.Observe(float64(res.Pages))
	searchResults.Observe(float64(len(res.Items)))

	c.logger.Info().
		Str("query", query).
		Int("pages", res.Pages).
		Int("results", len(res.Items)).
		Dur("duration", time.Since(start)).
		Msg("Search complete")

	return res.Items, nil
}

// record stores a history entry. History failures never fail a search.
func (c *Client) record(ctx context.Context, entry history.Entry) {
	if c.history == nil {
		return
	}
	if err := c.history.Record(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Warn().Err(err).Str("query", entry.Query).Msg("Failed to record search history")
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
