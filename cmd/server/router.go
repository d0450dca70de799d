package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/phrazzld/scry-gateway/internal/api"
	apiMiddleware "github.com/phrazzld/scry-gateway/internal/api/middleware"
	"github.com/phrazzld/scry-gateway/internal/api/shared"
	"github.com/phrazzld/scry-gateway/internal/platform/metrics"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)
	r.Use(metrics.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     app.config.Server.CORSAllowedOrigins,
		AllowedMethods:     []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:     []string{"authorization", "x-client-info", "apikey", "content-type"},
		ExposedHeaders:     []string{shared.TraceIDHeader},
		MaxAge:             300,
		OptionsPassthrough: false,
	}))

	generateHandler := api.NewGenerateHandler(app.service, app.logger.With("component", "generate_handler"))

	r.Group(func(r chi.Router) {
		if limit := app.config.Server.RateLimitPerMinute; limit > 0 {
			r.Use(httprate.LimitByIP(limit, time.Minute))
		}
		r.Use(apiMiddleware.MaxBodyBytes(app.config.Server.MaxBodyBytes))

		r.Post("/", generateHandler.Generate)
		r.Post("/api/generate", generateHandler.Generate)
	})

	// The cors handler answers real preflights; any other OPTIONS gets a bare 200.
	r.Options("/", optionsOK)
	r.Options("/api/generate", optionsOK)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithError(w, r, http.StatusNotFound, "not found")
	})

	return otelhttp.NewHandler(r, "scry-gateway")
}

func optionsOK(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
