package main

import (
	"net/http"

	"github.com/calebmoore/lessonforge-api/internal/api"
	apiMiddleware "github.com/calebmoore/lessonforge-api/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	// Create API handlers using the application's services
	generationHandler := api.NewGenerationHandler(app.jobService)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/generations", generationHandler.SubmitGeneration)
		r.Get("/generations/{id}", generationHandler.GetGeneration)
		r.Post("/generations/{id}/cancel", generationHandler.CancelGeneration)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	// Prometheus metrics endpoint
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(app.metrics.Registry(), promhttp.HandlerOpts{}))

	return r
}
