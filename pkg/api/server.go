package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cbruyndoncx/open-work-protocol/pkg/log"
	"github.com/cbruyndoncx/open-work-protocol/pkg/metrics"
	"github.com/cbruyndoncx/open-work-protocol/pkg/pool"
	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

// Config holds the HTTP server's transport settings.
type Config struct {
	// Addr is the listen address, host:port.
	Addr string

	// AdminToken guards the /v1/admin subtree. Empty falls back to
	// OWP_ADMIN_TOKEN or the development default.
	AdminToken string
}

// Server is the HTTP front of the pool service.
type Server struct {
	svc        *pool.Service
	checker    *metrics.Checker
	adminToken string
	router     chi.Router
	http       *http.Server
}

// NewServer builds the router and the underlying http.Server. The
// checker may be nil; the /health and /ready endpoints are then omitted
// while /healthz stays available.
func NewServer(svc *pool.Service, checker *metrics.Checker, cfg Config) *Server {
	if cfg.AdminToken == "" {
		cfg.AdminToken = AdminTokenFromEnv()
	}
	s := &Server{
		svc:        svc,
		checker:    checker,
		adminToken: cfg.AdminToken,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(recoverer, requestMetrics, requestLogger)

	r.Get("/", s.handleDashboard)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", metrics.Handler())
	if s.checker != nil {
		r.Get("/health", s.checker.HealthHandler())
		r.Get("/ready", s.checker.ReadyHandler())
		r.Get("/live", s.checker.LivenessHandler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/workers/register", s.handleRegister)
		r.Post("/workers/heartbeat", s.requireWorker(s.handleHeartbeat))
		r.Get("/work", s.requireWorker(s.handleWork))
		r.Post("/tasks/{taskID}/status", s.requireWorker(s.handleTaskStatus))

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/repos", s.handleCreateRepo)
			r.Post("/tasks", s.handleCreateTask)
			r.Get("/state", s.handleAdminState)
		})
	})
	return r
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	log.WithComponent("api").Info().Str("addr", s.http.Addr).Msg("HTTP API listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithComponent("api").Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
}

// statusFor maps the pool's error kinds to transport status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrAuthMissing), errors.Is(err, types.ErrAuthInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
