// Package web is the room-layer adapter: an HTTP control API that feeds room
// observations to the stage controller, and a websocket stream that carries
// stage and queue effects back to the room.
package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/justestif/go-stagehand/internal/room"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr        string
	SelfID      string
	Store       *room.Store
	Controller  Controller
	Hub         *Hub
	TemplatesFS fs.FS
	StaticFS    fs.FS
	Logger      *slog.Logger
}

// Server is the HTTP server for the room-layer adapter.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	hub      *Hub
	logger   *slog.Logger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var templates *Templates
	if cfg.TemplatesFS != nil {
		t, err := NewTemplates(cfg.TemplatesFS)
		if err != nil {
			return nil, fmt.Errorf("loading templates: %w", err)
		}
		templates = t
	}

	router := chi.NewRouter()

	s := &Server{
		router:   router,
		handlers: NewHandlers(cfg.Store, cfg.Controller, cfg.Hub, templates, cfg.SelfID, logger),
		hub:      cfg.Hub,
		logger:   logger,
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.StaticFS)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(staticFS fs.FS) {
	if staticFS != nil {
		fileServer := http.FileServer(http.FS(staticFS))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	s.router.Get("/", s.handlers.Home)
	s.router.Get("/partials/status", s.handlers.StatusPartial)
	s.router.Get("/healthz", s.handlers.Healthz)

	s.router.Post("/snapshot", s.handlers.Snapshot)
	s.router.Post("/events", s.handlers.Events)
	s.router.Put("/glue", s.handlers.Glue)
	s.router.Get("/status", s.handlers.Status)

	// The websocket connection outlives the server's write timeout; the hub
	// sets its own deadlines.
	if s.hub != nil {
		s.router.Get("/effects", s.hub.ServeHTTP)
	}
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.hub != nil {
		s.hub.Close()
	}
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
