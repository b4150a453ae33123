package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credvault_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "credvault_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	activeAccountsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "credvault_active_accounts_total",
		Help: "Number of active accounts.",
	})

	activeCredentialsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "credvault_active_credentials_total",
		Help: "Number of active credential records.",
	})

	decryptionFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "credvault_decryption_failures_total",
		Help: "Number of credential reads that failed MAC or key checks.",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration,
		activeAccountsTotal, activeCredentialsTotal, decryptionFailuresTotal)
}

// MetricsHandler returns the Prometheus metrics HTTP handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// metricsMiddleware records request metrics keyed by route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rr := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rr, r)

		dur := time.Since(start).Seconds()
		path := routePattern(r)
		status := strconv.Itoa(rr.statusCode)
		requestsTotal.WithLabelValues(r.Method, path, status).Inc()
		requestDuration.WithLabelValues(r.Method, path).Observe(dur)
	})
}
