// Package web wires the HTTP API over the capture-session supervisor.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/veriface/veriface/internal/attendance"
	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/web/handlers"
	"github.com/veriface/veriface/internal/web/middleware"
)

// Server represents the web server.
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server

	controller handlers.Controller
	reader     handlers.AttendanceReader
	ledger     *attendance.Ledger
	policy     *attendance.AccessPolicy
}

// NewServer creates a new web server around the session controller.
func NewServer(cfg *config.Config, ctl handlers.Controller, reader handlers.AttendanceReader, ledger *attendance.Ledger, policy *attendance.AccessPolicy) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:     cfg,
		router:     r,
		controller: ctl,
		reader:     reader,
		ledger:     ledger,
		policy:     policy,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS())
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: the MJPEG preview streams until the client
		// disconnects.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
