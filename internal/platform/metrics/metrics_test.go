package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitMetricsIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		InitMetrics()
		InitMetrics()
	})
}

func TestHTTPMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.Post("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/api/generate", http.MethodPost, "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/generate", nil))
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/api/generate", http.MethodPost, "200"))

	assert.Equal(t, before+1, after)
}

func TestRecorders(t *testing.T) {
	ObserveAttempt("gemini", "generateDeck", "success", 150*time.Millisecond)
	CredentialRotated("gemini", "quota")
	PoolExhausted("gemini", "retryable")
	GenerationCompleted("generateDeck", "success")

	assert.GreaterOrEqual(t, testutil.ToFloat64(ProviderAttemptsTotal.WithLabelValues("gemini", "generateDeck", "success")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(CredentialRotationsTotal.WithLabelValues("gemini", "quota")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(PoolExhaustedTotal.WithLabelValues("gemini", "retryable")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(GenerationsTotal.WithLabelValues("generateDeck", "success")), 1.0)
}
