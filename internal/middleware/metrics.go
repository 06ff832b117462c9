package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsMiddleware collects metrics about requests.
type MetricsMiddleware struct {
	requestCounter   *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
}

// NewMetricsMiddleware creates a new metrics middleware.
func NewMetricsMiddleware(reg prometheus.Registerer) *MetricsMiddleware {
	const namespace = "airquality_api"

	requestCounter := promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	requestsInFlight := promauto.With(reg).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Current number of requests being processed",
		},
		[]string{"method", "path"},
	)

	return &MetricsMiddleware{
		requestCounter:   requestCounter,
		requestDuration:  requestDuration,
		requestsInFlight: requestsInFlight,
	}
}

// CollectMetrics collects metrics for requests.
func (m *MetricsMiddleware) CollectMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		m.requestsInFlight.WithLabelValues(method, path).Inc()
		defer m.requestsInFlight.WithLabelValues(method, path).Dec()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rw, r)
		duration := time.Since(start).Seconds()

		m.requestCounter.WithLabelValues(method, path, strconv.Itoa(rw.status)).Inc()
		m.requestDuration.WithLabelValues(method, path).Observe(duration)
	})
}
