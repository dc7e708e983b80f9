// Package server wires the chi router, the middleware chain and the HTTP
// lifecycle (startup, graceful shutdown, dev profiling) for the diagnosis API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/symptomcheck/diagnosis-api/config"
	"github.com/symptomcheck/diagnosis-api/interfaces"
	"github.com/symptomcheck/diagnosis-api/logging"
	"github.com/symptomcheck/diagnosis-api/metrics"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

// corsPolicy allows browser clients from any origin. Credentials stay
// disabled so the wildcard origin is safe.
var corsPolicy = cors.Options{
	AllowedOrigins:   []string{"*"},
	AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
	AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
	ExposedHeaders:   []string{"Link"},
	AllowCredentials: false,
	MaxAge:           300,
}

// Server owns the HTTP listener and its routing table.
type Server struct {
	server  *http.Server
	router  chi.Router
	handler interfaces.HTTPHandler
	config  *config.Config
}

// NewServer builds a fully routed server from the given handler set.
func NewServer(cfg *config.Config, handler interfaces.HTTPHandler) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		handler: handler,
		config:  cfg,
	}
	s.server = &http.Server{
		Handler:      s.router,
		Addr:         cfg.Address + ":" + cfg.Port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware installs the middleware chain. Order matters:
// BlockDirectAccessMiddleware must run before RealIPMiddleware so it still
// sees the original RemoteAddr, and metrics wrap only requests that survived
// the size and rate limits' predecessors.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(BlockDirectAccessMiddleware)
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.DefaultLoggingService.Logger))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(corsPolicy))
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(metrics.Metrics)
	s.router.Use(RateLimitHandler)
}

// setupRoutes registers the API endpoints and the static pages.
func (s *Server) setupRoutes() {
	s.router.Post("/diagnose", s.handler.Diagnose)
	s.router.Get("/symptoms", s.handler.ServeSymptoms)
	s.router.Get("/symptoms/suggest/{query}", s.handler.SuggestSymptoms)
	s.router.Get("/diseases", s.handler.ServeDiseases)
	s.router.Get("/treatments/{disease}", s.handler.FindTreatment)
	s.router.Get("/model", s.handler.ServeModelInfo)
	s.router.Get("/health", s.handler.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.setupDocumentationRoutes()
}

// staticFile serves one file from the html directory with a cache policy.
func staticFile(path, contentType, cacheControl string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", cacheControl)
		w.Header().Set("Content-Type", contentType)
		http.ServeFile(w, r, path)
	}
}

func (s *Server) setupDocumentationRoutes() {
	const cacheHour = "public, max-age=3600"
	const cacheYear = "public, max-age=31536000"

	s.router.Get("/", staticFile("html/index.html", "text/html; charset=utf-8", cacheHour))
	s.router.Get("/docs", staticFile("html/docs.html", "text/html; charset=utf-8", cacheHour))
	s.router.Get("/favicon.ico", staticFile("html/favicon.ico", "image/x-icon", cacheYear))
}

// Start runs the listener until it fails or Shutdown is called.
func (s *Server) Start() error {
	if s.config.Env == "dev" {
		s.startProfilingServer()
	}

	logging.Info("HTTP server listening", "address", s.config.Address, "port", s.config.Port)
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests, falling back to a hard close when the
// context expires first.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Stopping HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Graceful shutdown failed, closing", "error", err)
		if closeErr := s.server.Close(); closeErr != nil {
			logging.Error("Hard close failed", "error", closeErr)
			return closeErr
		}
	}

	logging.Info("Draining remaining connections")
	time.Sleep(2 * time.Second)

	logging.Info("HTTP server stopped")
	return nil
}

// startProfilingServer exposes pprof on a localhost-only port in dev mode.
func (s *Server) startProfilingServer() {
	go func() {
		logging.Info("Profiling server listening on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			logging.Error("Profiling server failed", "error", err)
		}
	}()
}
