// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root of the HTTP side: it receives the user
// repository from main (already opened from DB_URL) and wires
//
//	repository → service.UserService → handler.UserHandler → chi routes
//
// The repository is injected rather than opened here so tests can hand in an
// isolated in-memory store.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/users-api/internal/handler"
	"github.com/sakif/users-api/internal/middleware"
	"github.com/sakif/users-api/internal/repository"
	"github.com/sakif/users-api/internal/service"
)

// Config holds server configuration.
//
// Only what the HTTP server itself needs lives here. Database and logging
// settings are resolved in main, which hands over a ready repository and
// logger.
type Config struct {
	Port            int
	ShutdownTimeout time.Duration
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
}

// New creates a Server serving the users API on top of repo.
func New(cfg Config, repo repository.UserRepository, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	s.setupRoutes(repo)
	return s
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// POST   /users        → create user
// GET    /users        → list users
// GET    /users/{id}   → get user
// PUT    /users/{id}   → update user
// DELETE /users/{id}   → delete user
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: tags the request (xid) before anything logs
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Recoverer: turns a panic into a 500 instead of crashing
func (s *Server) setupRoutes(repo repository.UserRepository) {
	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.NotFound(handler.NotFound)
	s.router.MethodNotAllowed(handler.MethodNotAllowed)

	userService := service.NewUserService(repo, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	userHandler.Register(s.router)
}

// Start serves HTTP until ctx is cancelled, SIGINT/SIGTERM arrives or the
// listener fails. On shutdown in-flight requests get ShutdownTimeout to finish.
func (s *Server) Start(ctx context.Context) error {
	// TIMEOUTS:
	// The zero value of http.Server never times out, so one slow client could
	// hold a connection open forever. ReadTimeout bounds reading the request,
	// WriteTimeout bounds writing the response and IdleTimeout closes idle
	// keep-alive connections.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ListenAndServe blocks, so it runs in its own goroutine and reports back
	// on a buffered channel. The buffer lets the goroutine exit even when
	// nobody is receiving any more.
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
