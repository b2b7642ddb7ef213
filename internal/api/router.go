// Landing Backend - Phone Registration and Landing Media Service
// Copyright 2026 Peyksaz
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/peyksaz/landing-backend

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peyksaz/landing-backend/internal/middleware"
)

// NewRouter wires the full HTTP surface: registration and landing
// endpoints under /api/v1, admin media management under
// /api/v1/admin, plus health and Prometheus metrics.
func NewRouter(handler *Handler, mw *ChiMiddleware) chi.Router {
	r := chi.NewRouter()

	// Global middleware. RealIP must precede anything keyed on the
	// client address (rate limiting, registration IP capture).
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(mw.RateLimit())

		r.Post("/register", handler.RegisterPhone)
		r.Get("/landing-media", handler.LandingMedia)
		r.Get("/health", handler.Health)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/media", handler.ListMedia)
			r.Post("/media", handler.CreateMedia)
			r.Put("/media/{id}/default", handler.SetDefaultMedia)
		})
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
