// Package api exposes the build orchestrator over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/netutil"

	"git.home.luguber.info/inful/skelbuilder/internal/build"
	"git.home.luguber.info/inful/skelbuilder/internal/config"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/project"
)

// Builds is the orchestrator surface the API needs.
type Builds interface {
	Schedule(ctx context.Context, spec project.Specification) (build.Request, error)
	Get(id string) (build.Request, error)
	List() []build.Request
	Cancel(ctx context.Context, id string) (build.CancelOutcome, error)
	Fetch(ctx context.Context, id string) (*build.Handle, error)
	QueueLength() int
	Active() int
}

// Options configures the listener and optional endpoints.
type Options struct {
	Address        string
	MaxConnections int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	// Metrics is mounted at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
}

// OptionsFrom converts the server config section.
func OptionsFrom(cfg config.ServerConfig) Options {
	return Options{
		Address:        cfg.Address,
		MaxConnections: cfg.MaxConnections,
		ReadTimeout:    cfg.ReadTimeout.Duration(),
		WriteTimeout:   cfg.WriteTimeout.Duration(),
		IdleTimeout:    cfg.IdleTimeout.Duration(),
	}
}

// Server represents the API server.
type Server struct {
	opts      Options
	builds    Builds
	router    *chi.Mux
	server    *http.Server
	errors    *errors.HTTPErrorAdapter
	maxBody   int64
	startedAt time.Time
}

// NewServer creates a new API server.
func NewServer(builds Builds, opts Options) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 60 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	s := &Server{
		opts:      opts,
		builds:    builds,
		router:    chi.NewRouter(),
		errors:    errors.NewHTTPErrorAdapter(nil),
		maxBody:   1 << 20,
		startedAt: time.Now(),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         opts.Address,
		Handler:      s.router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(recoverer(s.errors))
	s.router.Use(middleware.Timeout(s.opts.RequestTimeout))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/options", s.handleOptions)

	s.router.Route("/projects", func(r chi.Router) {
		r.Post("/", s.handleCreateProject)
		r.Get("/", s.handleListProjects)
		r.Get("/{id}", s.handleGetProject)
		r.Get("/{id}/status", s.handleProjectStatus)
		r.Get("/{id}/download", s.handleDownload)
		r.Delete("/{id}", s.handleCancelProject)
	})

	if s.opts.Metrics != nil {
		s.router.Method(http.MethodGet, s.opts.MetricsPath, s.opts.Metrics)
	}

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.errors.WriteErrorResponse(w, r, errors.NotFoundError("no such endpoint").
			WithContext("path", r.URL.Path).Build())
	})
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Serve accepts connections on ln, capped at MaxConnections when positive.
func (s *Server) Serve(ln net.Listener) error {
	if s.opts.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.opts.MaxConnections)
	}
	slog.Info("HTTP API listening",
		slog.String("address", ln.Addr().String()),
		slog.Int("max_connections", s.opts.MaxConnections))
	err := s.server.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to listen").
			WithContext("address", s.opts.Address).
			Build()
	}
	return s.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Response represents a standard API response.
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// Success writes a success response.
func (s *Server) Success(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

// Error writes a classified error response.
func (s *Server) Error(w http.ResponseWriter, r *http.Request, err error) {
	s.errors.WriteErrorResponse(w, r, err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.Success(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"queued":         s.builds.QueueLength(),
		"active":         s.builds.Active(),
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	var groups []string
	if g := r.URL.Query().Get("group"); g != "" {
		groups = project.SplitList(g)
	}
	s.Success(w, http.StatusOK, project.Options(groups...))
}
