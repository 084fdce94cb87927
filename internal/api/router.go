// Shoprec - Hybrid Product Recommendation Engine
// Copyright 2026 Mercata Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercata/shoprec

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercata/shoprec/internal/metrics"
	"github.com/mercata/shoprec/internal/middleware"
)

// Router builds the HTTP route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Unknown routes and wrong methods answer with the same JSON error
	// envelope as everything else.
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, codeNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "Method not allowed")
	})

	// Health and metrics stay outside the rate limit so probes and
	// scrapes never get throttled.
	r.Get("/health", s.handleHealth)
	r.Get("/health/live", s.handleLive)
	r.Get("/health/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(
			s.cfg.Server.RateLimitPerMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				metrics.APIRateLimitHits.WithLabelValues(r.URL.Path).Inc()
				respondError(w, http.StatusTooManyRequests, codeRateLimited, "Rate limit exceeded")
			}),
		))
		r.Use(middleware.Prometheus)

		r.Post("/recommendations", s.handleRecommendations)
		r.Post("/track-behavior", s.handleTrackBehavior)
		r.Get("/model-status", s.handleModelStatus)
		r.Post("/retrain-models", s.handleRetrain)
		r.Get("/user-profile/{userId}", s.handleUserProfile)
	})

	return r
}
