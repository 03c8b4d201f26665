// Package server provides the NPI lookup web form, its JSON/CSV API, and
// HTTP server lifecycle handling.
package server

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gyeh/npi-lookup/internal/config"
	"github.com/gyeh/npi-lookup/internal/logging"
	"github.com/gyeh/npi-lookup/internal/metrics"
	"github.com/gyeh/npi-lookup/internal/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var serverStartTime = time.Now()

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router chi.Router
	config *config.Config
	client worker.Lookuper
	logger *slog.Logger
}

// NewServer creates a server that looks NPIs up through client.
func NewServer(cfg *config.Config, client worker.Lookuper, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:     router,
			Addr:        cfg.ListenAddr(),
			ReadTimeout: 15 * time.Second,
			// A batch runs inside the request, so writes may take minutes.
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		router: router,
		config: cfg,
		client: client,
		logger: logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.RequestSize(s.config.MaxRequestBody))
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Post("/lookup", s.handleLookupForm)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/lookup", s.handleLookupJSON)
		r.Post("/lookup.csv", s.handleLookupCSV)
	})

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("Starting server", "addr", s.server.Addr, "env", s.config.Env)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil {
			s.logger.Error("Server close error", "error", err)
			return err
		}
	}

	s.logger.Info("Server shutdown complete")
	return nil
}
