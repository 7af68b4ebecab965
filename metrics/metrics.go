// Package metrics exposes Prometheus collectors for scraper traffic. Hook and
// ObservePage plug into twitter.ClientConfig.
//
// Request Metrics:
//   - twscrape_requests_total{endpoint, outcome} (Counter): requests by endpoint
//     and outcome (ok, error, rate_limited)
//
// Pagination Metrics:
//   - twscrape_pages_total{endpoint} (Counter): feed pages fetched
//   - twscrape_items_total{endpoint} (Counter): feed items received
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
)

var (
	// Requests tracks requests by endpoint and outcome.
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twscrape_requests_total",
			Help: "Total number of requests to the Twitter web frontend",
		},
		[]string{"endpoint", "outcome"},
	)

	// Pages tracks fetched feed pages by endpoint.
	Pages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twscrape_pages_total",
			Help: "Total number of feed pages fetched",
		},
		[]string{"endpoint"},
	)

	// Items tracks feed items received by endpoint.
	Items = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twscrape_items_total",
			Help: "Total number of feed items received",
		},
		[]string{"endpoint"},
	)
)

// Hook records one request. It matches twitter.ClientConfig.MetricsHook.
func Hook(endpoint string, success, rateLimited bool) {
	Requests.WithLabelValues(endpoint, outcome(success, rateLimited)).Inc()
}

// ObservePage records one fetched page. It matches twitter.ClientConfig.PageHook.
func ObservePage(endpoint string, items int) {
	Pages.WithLabelValues(endpoint).Inc()
	Items.WithLabelValues(endpoint).Add(float64(items))
}

func outcome(success, rateLimited bool) string {
	switch {
	case rateLimited:
		return OutcomeRateLimited
	case success:
		return OutcomeOK
	}
	return OutcomeError
}
