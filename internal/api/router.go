// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/supoclip/supoclip/internal/config"
	"github.com/supoclip/supoclip/internal/middleware"
)

// Version is reported by /health.
const Version = "1.0.0"

// NewRouter builds the full route tree for the API server.
func NewRouter(cfg *config.Config, handler *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	}))

	// Health endpoints stay outside rate limiting so orchestrators can
	// probe aggressively. The bare /health alias serves container
	// healthchecks that predate the /api/v1 prefix.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", handler.Health)
		r.Get("/live", handler.HealthLive)
		r.Get("/ready", handler.HealthReady)
		r.Get("/queue", handler.HealthQueue)
	})
	r.Get("/health", handler.Health)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			cfg.Server.RateLimitReqs,
			cfg.Server.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))

		// The WebSocket upgrade needs the raw ResponseWriter, so it sits
		// outside the instrumented group.
		r.Get("/ws", handler.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.PrometheusMetrics)

			r.Post("/tasks", handler.CreateTask)
			r.Get("/tasks", handler.ListTasks)
			r.Get("/tasks/{id}", handler.GetTask)
			r.Get("/tasks/{id}/clips", handler.GetTaskClips)
			r.Delete("/tasks/{id}", handler.DeleteTask)
		})
	})

	// Generated clips are served straight from disk.
	clipsDir := http.Dir(cfg.Paths.ClipsDir())
	r.Handle("/clips/*", http.StripPrefix("/clips/", http.FileServer(clipsDir)))

	return r
}
