package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/pokedex-client/pkg/client"
	"github.com/Sternrassler/pokedex-client/pkg/history"
	"github.com/Sternrassler/pokedex-client/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const defaultHistoryLimit = 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the search proxy",
	Long: `serve exposes the aggregated search over HTTP:

  GET /search/{query}   all pages of results as {"pokemon": [...]}
  GET /history          recent searches (requires redis.enabled)
  GET /health           liveness
  GET /ready            readiness (pings Redis when enabled)
  GET /metrics          Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// searcher is the part of *client.Client the proxy needs.
type searcher interface {
	Search(ctx context.Context, query string) ([]client.Pokemon, error)
}

// historyReader is the part of *history.Recorder the proxy needs.
type historyReader interface {
	Recent(ctx context.Context, n int) ([]history.Entry, error)
}

// server holds the proxy's dependencies. chaos answers requests carrying
// ?chaos=true; history and ping are nil when Redis is disabled.
type server struct {
	search  searcher
	chaos   searcher
	history historyReader
	ping    func(ctx context.Context) error
	logger  zerolog.Logger
}

func runServe(cmd *cobra.Command, args []string) error {
	plain, err := newClient(cfg.API.Chaos)
	if err != nil {
		return err
	}
	defer plain.Close()

	chaotic, err := newClient(true)
	if err != nil {
		return err
	}
	defer chaotic.Close()

	s := &server{
		search: plain,
		chaos:  chaotic,
		logger: logger.With().Str("component", "server").Logger(),
	}
	if recorder != nil {
		s.history = recorder
		s.ping = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.API.Timeout * 4,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str("addr", addr).
			Str("api", plain.BaseURL()).
			Bool("history", s.history != nil).
			Msg("Starting search proxy")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down search proxy")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *server) routes() http.Handler {
	mux := chi.NewRouter()

	mux.Get("/health", healthHandler)
	mux.Get("/ready", s.readyHandler)
	mux.Method(http.MethodGet, "/metrics", metrics.Handler())
	mux.Get("/search/{query}", s.searchHandler)
	mux.Get("/history", s.historyHandler)

	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) searchHandler(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "query")
	if unescaped, err := url.PathUnescape(query); err == nil {
		query = unescaped
	}

	target := s.search
	if chaos, _ := strconv.ParseBool(r.URL.Query().Get(client.ChaosParam)); chaos {
		target = s.chaos
	}

	pokemon, err := target.Search(r.Context(), query)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("Proxied search failed")
		writeJSONResponse(w, http.StatusBadGateway, client.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSONResponse(w, http.StatusOK, client.SearchResults{Pokemon: pokemon})
}

func (s *server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSONResponse(w, http.StatusNotFound, client.ErrorResponse{Error: "search history is disabled"})
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSONResponse(w, http.StatusBadRequest, client.ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read search history")
		writeJSONResponse(w, http.StatusInternalServerError, client.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSONResponse(w, http.StatusOK, entries)
}

func writeJSONResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn().Err(err).Msg("Failed to write response")
	}
}
