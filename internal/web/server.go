// Package web exposes batch runs, device closure and the run ledger over a
// JSON HTTP API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/electroop-engineering/gib-esu/internal/batch"
	"github.com/electroop-engineering/gib-esu/internal/config"
	"github.com/electroop-engineering/gib-esu/internal/gib"
	"github.com/electroop-engineering/gib-esu/internal/history"
	"github.com/electroop-engineering/gib-esu/internal/records"
	mw "github.com/electroop-engineering/gib-esu/internal/web/middleware"
)

// Batches runs registration and update batches. *batch.Orchestrator
// implements it.
type Batches interface {
	Register(ctx context.Context, rows []records.Row, parallel bool) (*batch.RegistrationSummary, string, error)
	Update(ctx context.Context, rows []records.Row, parallel bool) (*batch.UpdateSummary, string, error)
}

// Devices closes devices. *gib.Service implements it.
type Devices interface {
	CloseDevice(ctx context.Context, serial string) (*gib.Response, error)
}

// Runs reads the run ledger. *history.Store implements it.
type Runs interface {
	ListRuns(ctx context.Context, limit int) ([]history.RunSummary, error)
	GetRun(ctx context.Context, id string) (*history.RunDetail, error)
	Ping(ctx context.Context) error
}

// Deps are the server's collaborators. Runs and Gatherer may be nil.
type Deps struct {
	Batches  Batches
	Devices  Devices
	Runs     Runs
	Gatherer prometheus.Gatherer
}

// Server is the HTTP API.
type Server struct {
	cfg     *config.Config
	batches Batches
	devices Devices
	runs    Runs
	limiter *RunLimiter
	router  *chi.Mux
	server  *http.Server
}

// NewServer builds the router for cfg.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:     cfg,
		batches: deps.Batches,
		devices: deps.Devices,
		runs:    deps.Runs,
		limiter: NewRunLimiter(cfg.Batch.MaxConcurrentRuns, cfg.Batch.MaxWaitTime),
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes(deps.Gatherer)
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.Get("/healthz", s.handleHealth)

	if s.cfg.Metrics.Enabled && gatherer != nil {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))

		// Batch runs
		r.Post("/runs/register", s.handleRegister)
		r.Post("/runs/update", s.handleUpdate)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)

		// Single device operations
		r.Post("/devices/{serial}/close", s.handleCloseDevice)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for running batches.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.limiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders sets headers for a JSON-only API.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
