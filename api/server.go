/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the (external) frontend

ROUTE GROUPS:
  /api/book, /api/track, /api/centers/*   Citizen surface
  /api/login, /api/admin/*                Admin surface
  /api/seed                               Demo data loader
  /metrics                                Prometheus (when enabled)
  /healthz                                Readiness (503 during reset)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions carries optional router wiring.
type RouterOptions struct {
	// MetricsHandler, when non-nil, is mounted at MetricsPath.
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Citizen surface
		r.Post("/book", h.Book)
		r.Get("/track", h.Track)
		r.Post("/requests/{id}/cancel", h.Cancel)

		r.Route("/centers", func(r chi.Router) {
			r.Get("/", h.ListCenters)
			r.Get("/{id}/load", h.CenterLoad)
		})

		// Admin surface
		r.Post("/login", h.Login)
		r.Route("/admin", func(r chi.Router) {
			r.Post("/data", h.AdminData)
			r.Post("/redistribute", h.Redistribute)
			r.Post("/reset", h.Reset)
		})

		// Demo data
		r.Post("/seed", h.Seed)
	})

	// Readiness: 503 while a reset holds the maintenance barrier.
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := h.Engine.Ready(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Maintenance in progress", err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "ok"})
	})

	// Prometheus
	if opts.MetricsHandler != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, opts.MetricsHandler)
	}

	return r
}
