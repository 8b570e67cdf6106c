package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"toolscout/internal/config"
	"toolscout/internal/core"
	"toolscout/internal/logger"
	"toolscout/internal/store"
)

// ResearchController is the slice of the pipeline controller the HTTP
// surface needs.
type ResearchController interface {
	Start(focusAreas []string, maxTools int) (string, error)
	Status() core.RunSnapshot
	Subscribe() (<-chan core.ProgressEvent, func())
}

// CatalogReader exposes the persisted tool collection to read-only handlers.
type CatalogReader interface {
	Load() ([]core.StoredTool, error)
}

// RunLog exposes the persisted run history. Optional; a nil log disables
// the history endpoint.
type RunLog interface {
	RecentRuns(n int) ([]store.RunEntry, error)
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	controller ResearchController
	catalog    CatalogReader
	runLog     RunLog
	config     config.Server
	log        *slog.Logger
}

// New creates a new HTTP server instance. runLog may be nil.
func New(controller ResearchController, cat CatalogReader, runLog RunLog, cfg config.Server) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		controller: controller,
		catalog:    cat,
		runLog:     runLog,
		config:     cfg,
		log:        logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: cfg.ReadTimeout,
		// WriteTimeout stays at the configured value; zero means no limit,
		// which the SSE stream requires.
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/research", func(r chi.Router) {
		r.Post("/start", s.handleResearchStart)
		r.Get("/status", s.handleResearchStatus)
		r.Get("/stream", s.handleResearchStream)
		r.Get("/log", s.handleResearchLog)
	})

	s.router.Route("/tools", func(r chi.Router) {
		r.Get("/", s.handleListTools)
		r.Get("/stats", s.handleToolStats)
	})
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

var serverStartTime = time.Now()

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(serverStartTime).Round(time.Second).String(),
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.config.ReadTimeout,
		"write_timeout", s.config.WriteTimeout,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes a JSON error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
