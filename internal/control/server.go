// Package control exposes the engine commands over HTTP/JSON on a loopback
// address and provides the matching client.
package control

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"outreach/internal/browser"
	"outreach/internal/engine"
	"outreach/internal/logging"
	"outreach/internal/store"
	"outreach/internal/types"

	"github.com/go-chi/chi/v5"
)

// Engine is the command surface served over HTTP.
type Engine interface {
	Status() engine.Status
	Start(ctx context.Context) engine.Response
	Stop() engine.Response
	DryRun(ctx context.Context) engine.Response
	CollectOnce(ctx context.Context) engine.Response
	ProfileBatch(ctx context.Context, profiles []types.Profile) engine.Response
	FetchLogs(ctx context.Context, limit int) engine.LogsResponse
	ClearLogs(ctx context.Context) engine.Response

	DebugScrape(ctx context.Context) engine.DebugResponse
	DebugInvite(ctx context.Context, profileID, note string) engine.DebugResponse
	DebugNextPage(ctx context.Context) engine.DebugResponse
}

// Browser reports the tracked browser tabs.
type Browser interface {
	IsConnected() bool
	List() []browser.Session
}

// Handler serves the control API.
type Handler struct {
	engine   Engine
	settings *store.Settings
	browser  Browser
}

// NewHandler returns a handler over eng and settings. br may be nil when no
// browser is managed by this process.
func NewHandler(eng Engine, settings *store.Settings, br Browser) *Handler {
	return &Handler{engine: eng, settings: settings, browser: br}
}

// NewRouter wires the control routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", h.health)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/engine", func(r chi.Router) {
			r.Get("/status", h.status)
			r.Post("/start", h.start)
			r.Post("/stop", h.stop)
			r.Post("/dry-run", h.dryRun)
			r.Post("/collect", h.collect)
			r.Post("/batch", h.batch)
		})
		r.Get("/logs", h.fetchLogs)
		r.Delete("/logs", h.clearLogs)
		r.Route("/operations", func(r chi.Router) {
			r.Get("/", h.listOperations)
			r.Get("/{id}/config", h.getOperationConfig)
			r.Put("/{id}/config", h.putOperationConfig)
		})
		r.Route("/debug", func(r chi.Router) {
			r.Get("/tabs", h.debugTabs)
			r.Post("/scrape", h.debugScrape)
			r.Post("/invite", h.debugInvite)
			r.Post("/next", h.debugNext)
		})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

// Server runs the control API on a listener.
type Server struct {
	http *http.Server
}

// NewServer returns a server for addr.
func NewServer(addr string, h http.Handler) *Server {
	return &Server{http: &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Control("control API listening on %s", ln.Addr())
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logging.Control("control API stopped")
	return nil
}
