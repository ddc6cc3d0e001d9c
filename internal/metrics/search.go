package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clickshop",
			Name:      "search_requests_total",
			Help:      "Searches by selected strategy and execution path",
		},
		[]string{"strategy", "path", "status"},
	)

	RankingFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clickshop",
			Name:      "ranking_fallback_total",
			Help:      "Hybrid searches that fell back to fuzzy matching",
		},
		[]string{"stage"}, // "embed" / "query"
	)

	StatementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clickshop",
			Name:      "statement_duration_seconds",
			Help:      "Remote SQL round trip duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend", "status"}, // backend: "rdsdata" / "mcp"
	)

	DecodeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clickshop",
			Name:      "decode_errors_total",
			Help:      "Wire fields that decoded to null",
		},
		[]string{"column"},
	)

	ActivityDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clickshop",
			Name:      "activity_dropped_total",
			Help:      "Activity entries a slow stream subscriber missed",
		},
	)
)

// Status maps an error to the "ok"/"error" label value.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
