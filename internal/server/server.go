// Package server wires the HTTP surface: the Telegram webhook endpoint,
// a health check and the Prometheus scrape endpoint.
package server

import (
	"net/http"

	"github.com/ad/go-telegram-reminder/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

func New(webhook http.HandlerFunc, gatherer prometheus.Gatherer, limiter *RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler(gatherer))
	r.With(limiter.Middleware).Post("/webhook", webhook)

	return r
}
