package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search backend and vector metadata metrics.
var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "backend_requests_total",
			Help:      "Total number of requests sent to the search backend",
		},
		[]string{"transport", "path", "status"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Search backend request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"transport", "path"},
	)

	VectorMetaCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "vector_meta_cache_total",
			Help:      "Vector column metadata cache lookups",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)
)

var backendMetricsRegistered bool

// RegisterBackendMetrics registers backend and metadata cache metrics. Must be called once from main.
func RegisterBackendMetrics() {
	if backendMetricsRegistered {
		return
	}
	prometheus.MustRegister(BackendRequestsTotal)
	prometheus.MustRegister(BackendRequestDuration)
	prometheus.MustRegister(VectorMetaCacheTotal)
	backendMetricsRegistered = true
}
