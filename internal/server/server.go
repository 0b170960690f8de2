// Package server exposes the engine's operation surface over HTTP. Upstream
// collaborators (ingestion, UI, auth) live elsewhere; this surface only
// covers mapping and recompute operations.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agrovista/cosecha/internal/engine"
)

// Server wraps the HTTP listener and routes.
type Server struct {
	engine *engine.Engine
	http   *http.Server
}

// New creates a server for the given engine listening on addr.
func New(eng *engine.Engine, addr string) *Server {
	s := &Server{engine: eng}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/campaigns/{campaignID}", func(r chi.Router) {
		r.Post("/mappings/propose", s.handleProposeMappings)
		r.Post("/mappings/confirm-all", s.handleConfirmAll)
		r.Get("/mappings", s.handleListMappings)
		r.Patch("/mappings/{process}/{category}", s.handlePatchMapping)
		r.Post("/recalculate", s.handleRecalculate)
		r.Get("/kpis", s.handleGetKPIs)
		r.Get("/alerts", s.handleGetAlerts)
	})
	r.Post("/alerts/{alertID}/ack", s.handleAckAlert)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe runs the server until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
