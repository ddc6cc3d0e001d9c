package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Embedding provider metrics. Purpose is "text" or "image".
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clickshop",
			Name:      "embedding_requests_total",
			Help:      "Embedding provider calls by purpose and outcome",
		},
		[]string{"provider", "model", "purpose", "status"},
	)

	// Image embeddings on Nova run noticeably slower than text, hence the purpose label.
	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clickshop",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding provider round trip in seconds",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4},
		},
		[]string{"provider", "purpose"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clickshop",
			Name:      "embedding_tokens_total",
			Help:      "Tokens billed by providers that report usage",
		},
		[]string{"provider", "model"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clickshop",
			Name:      "embedding_errors_total",
			Help:      "Failed embedding calls by failure class",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clickshop",
			Name:      "embedding_cache_total",
			Help:      "Query embedding cache lookups",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

// ObserveEmbedding records one provider call. An empty errorType means success.
func ObserveEmbedding(provider, model, purpose string, took time.Duration, errorType string) {
	status := "success"
	if errorType != "" {
		status = "error"
		EmbeddingErrorsTotal.WithLabelValues(provider, model, errorType).Inc()
	}
	EmbeddingRequestsTotal.WithLabelValues(provider, model, purpose, status).Inc()
	EmbeddingRequestDuration.WithLabelValues(provider, purpose).Observe(took.Seconds())
}
