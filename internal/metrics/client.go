package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Client-side Prometheus metrics: backend calls, detail cache, registry and search.
var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "idp",
			Name:      "backend_requests_total",
			Help:      "Total number of requests to the extraction backend and search collaborator",
		},
		[]string{"operation", "status"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "idp",
			Name:      "backend_request_duration_seconds",
			Help:      "Backend request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	BackendErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "idp",
			Name:      "backend_errors_total",
			Help:      "Total backend errors by kind",
		},
		[]string{"operation", "error_type"},
	)

	DetailCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "idp",
			Name:      "detail_cache_total",
			Help:      "Detail cache hits, misses and bypasses for documents still processing",
		},
		[]string{"result"}, // "hit" / "miss" / "bypass"
	)

	RegistryDocuments = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "idp",
			Name:      "registry_documents",
			Help:      "Documents in the registry by status",
		},
		[]string{"status"},
	)

	RegistryOverallProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "idp",
			Name:      "registry_overall_progress",
			Help:      "Mean progress of all registry documents",
		},
	)

	SearchOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "idp",
			Name:      "search_outcomes_total",
			Help:      "Committed search outcomes by state",
		},
		[]string{"state"},
	)
)

var clientMetricsRegistered bool

// RegisterClientMetrics registers the client metrics. Must be called once from main.
func RegisterClientMetrics() {
	if clientMetricsRegistered {
		return
	}
	prometheus.MustRegister(BackendRequestsTotal)
	prometheus.MustRegister(BackendRequestDuration)
	prometheus.MustRegister(BackendErrorsTotal)
	prometheus.MustRegister(DetailCacheTotal)
	prometheus.MustRegister(RegistryDocuments)
	prometheus.MustRegister(RegistryOverallProgress)
	prometheus.MustRegister(SearchOutcomesTotal)
	clientMetricsRegistered = true
}

func clientCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		BackendRequestsTotal,
		BackendRequestDuration,
		BackendErrorsTotal,
		DetailCacheTotal,
		RegistryDocuments,
		RegistryOverallProgress,
		SearchOutcomesTotal,
	}
}

// Register registers the client metrics on reg. Collectors reg already holds are skipped.
func Register(reg prometheus.Registerer) error {
	for _, c := range clientCollectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return fmt.Errorf("register client metric: %w", err)
		}
	}
	return nil
}

// SetRegistry publishes per-status document counts and the overall progress.
// Statuses absent from byStatus are dropped.
func SetRegistry(byStatus map[string]int, overallProgress int) {
	RegistryDocuments.Reset()
	for status, n := range byStatus {
		RegistryDocuments.WithLabelValues(status).Set(float64(n))
	}
	RegistryOverallProgress.Set(float64(overallProgress))
}
