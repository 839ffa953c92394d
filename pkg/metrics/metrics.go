// Package metrics exposes the Prometheus registry used by the Pokédex client.
// Metrics are defined in their respective packages (client, pagination,
// history) and registered via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the client.
var Registry = prometheus.DefaultRegisterer

// Handler serves all registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - pokedex_requests_total{endpoint, status} (Counter): requests by endpoint and HTTP status
//   - pokedex_request_duration_seconds{endpoint} (Histogram): request duration
//   - pokedex_errors_total{class} (Counter): failures by class (server, failure, network)
//
// Search Metrics (pkg/client):
//   - pokedex_search_pages (Histogram): pages per successful search
//   - pokedex_search_results (Histogram): results per successful search
//
// Pagination Metrics (pkg/pagination):
//   - pokedex_pagination_pages (Histogram): pages per completed walk
//   - pokedex_pagination_walks_total{state} (Counter): walks by final state (done, failed)
//
// History Metrics (pkg/history):
//   - pokedex_history_writes_total{result} (Counter): history writes (ok, error)
//
// Example Prometheus Queries:
//
//   # Server error rate
//   rate(pokedex_errors_total{class="server"}[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(pokedex_request_duration_seconds_bucket[5m]))
