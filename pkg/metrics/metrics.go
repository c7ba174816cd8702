package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// APIRequests counts requests dispatched to the BGG API by endpoint and outcome.
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardgraph_api_requests_total",
			Help: "BGG API requests dispatched, by endpoint and outcome",
		},
		[]string{"endpoint", "status"},
	)

	// APIRetries counts retry sleeps by endpoint and reason.
	APIRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardgraph_api_retries_total",
			Help: "BGG API retries, by endpoint and reason",
		},
		[]string{"endpoint", "reason"},
	)

	// ItemsSkipped counts item identifiers dropped from a run.
	ItemsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "boardgraph_items_skipped_total",
			Help: "Item identifiers dropped due to malformed or failed detail fetches",
		},
	)

	// RunSeconds records the wall-clock duration of the last generation run.
	RunSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "boardgraph_run_seconds",
			Help: "Duration of the last graph generation run in seconds",
		},
	)
)

func init() {
	prometheus.MustRegister(APIRequests)
	prometheus.MustRegister(APIRetries)
	prometheus.MustRegister(ItemsSkipped)
	prometheus.MustRegister(RunSeconds)
}
