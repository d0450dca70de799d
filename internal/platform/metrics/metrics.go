// Package metrics defines the Prometheus collectors exported by the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "method"},
	)

	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generations_total",
			Help: "Total number of dispatched generation actions by result",
		},
		[]string{"action", "result"},
	)

	ProviderAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_attempts_total",
			Help: "Total number of single provider calls by outcome",
		},
		[]string{"provider", "operation", "outcome"},
	)
	ProviderAttemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_attempt_duration_seconds",
			Help:    "Provider call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"provider", "operation"},
	)
	CredentialRotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_rotations_total",
			Help: "Total number of credentials marked failed, by failure class",
		},
		[]string{"provider", "class"},
	)
	PoolExhaustedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_pool_exhausted_total",
			Help: "Total number of runs where every credential failed, by last failure class",
		},
		[]string{"provider", "class"},
	)
)

var registerOnce sync.Once

// InitMetrics registers every collector with the default registry. It is safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			GenerationsTotal,
			ProviderAttemptsTotal,
			ProviderAttemptDuration,
			CredentialRotationsTotal,
			PoolExhaustedTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// ObserveAttempt records one provider call.
func ObserveAttempt(provider, operation, outcome string, elapsed time.Duration) {
	ProviderAttemptsTotal.WithLabelValues(provider, operation, outcome).Inc()
	ProviderAttemptDuration.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

// CredentialRotated records a credential being marked failed.
func CredentialRotated(provider, class string) {
	CredentialRotationsTotal.WithLabelValues(provider, class).Inc()
}

// PoolExhausted records a run that ran out of credentials.
func PoolExhausted(provider, class string) {
	PoolExhaustedTotal.WithLabelValues(provider, class).Inc()
}

// GenerationCompleted records the result of one dispatched action.
func GenerationCompleted(action, result string) {
	GenerationsTotal.WithLabelValues(action, result).Inc()
}
