package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Recommendations  *prometheus.CounterVec
	RecommendLatency prometheus.Histogram
	CacheEntries     prometheus.Gauge
	AuditWriteErrors prometheus.Counter
	CatalogErrors    *prometheus.CounterVec
	OpsFeedDrops     prometheus.Counter
	RequestErrors    *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Recommendations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation responses by strategy and source.",
		}, []string{"strategy", "source"}),
		RecommendLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommend_latency_ms",
			Help:      "Latency of recommendation calls in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		CacheEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recommendation_cache_entries",
			Help:      "Number of live per-user recommendation cache entries.",
		}),
		AuditWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_errors_total",
			Help:      "Failed audit sink writes.",
		}),
		CatalogErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_errors_total",
			Help:      "Catalog facade errors by operation.",
		}, []string{"op"}),
		OpsFeedDrops: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ops_feed_dropped_events_total",
			Help:      "Operator feed events dropped due to slow subscribers.",
		}),
		RequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "HTTP request errors by code.",
		}, []string{"code"}),
	}
}

func (m *Metrics) ObserveRecommendation(strategy string, cached bool, d time.Duration) {
	source := "fresh"
	if cached {
		source = "cache"
	}
	m.Recommendations.WithLabelValues(strategy, source).Inc()
	m.RecommendLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
