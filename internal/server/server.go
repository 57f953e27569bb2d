// Package server wires handlers, middleware, and routes into an HTTP
// server. It is the composition root: every dependency chain (DB →
// repository → service → handler) is assembled in New, and nothing outside
// this package knows how the pieces connect.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/clerk-sync/internal/auth"
	"github.com/sakif/clerk-sync/internal/clerk"
	"github.com/sakif/clerk-sync/internal/config"
	"github.com/sakif/clerk-sync/internal/handler"
	"github.com/sakif/clerk-sync/internal/middleware"
	sqliteRepo "github.com/sakif/clerk-sync/internal/repository/sqlite"
	"github.com/sakif/clerk-sync/internal/service"
)

// Server owns the router and the database connection; the connection is
// closed during graceful shutdown so the WAL is flushed before exit.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the server. Construction fails (rather than degrades) on a
// bad webhook secret or session secret — the sync endpoint must never run
// without its verification gate.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and routes.
//
// ROUTE MAP:
//
//	POST   /clerk-users-webhook       → webhook sync path (Svix-verified, no session)
//	GET    /healthz                   → liveness
//	GET    /api/client-config         → publishable client config (no session)
//	GET    /api/users/me              → caller's record        (session)
//	GET    /api/users/{clerkUserID}   → get by Clerk user ID   (session)
//	POST   /api/users                 → strict create          (session)
//	PUT    /api/users/{clerkUserID}   → full-replace update    (session)
//	DELETE /api/users/{clerkUserID}   → lenient delete         (session)
//	POST   /api/users/sync            → fallback sync (ensure) (session)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	verifier, err := clerk.NewVerifier(s.cfg.ClerkWebhookSecret)
	if err != nil {
		return fmt.Errorf("creating webhook verifier: %w", err)
	}

	tokens, err := auth.NewTokenService(s.cfg.SessionJWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	userService := service.NewUserService(s.db, s.logger)

	webhookHandler := handler.NewWebhookHandler(verifier, userService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	configHandler := handler.NewConfigHandler(handler.ClientConfig{
		ClerkPublishableKey: s.cfg.ClerkPublishableKey,
		APIBaseURL:          s.cfg.PublicBaseURL,
	})

	s.router.Post("/clerk-users-webhook", webhookHandler.HandleClerkWebhook)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/client-config", configHandler.HandleClientConfig)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/users/me", userHandler.HandleMe)
			r.Post("/users/sync", userHandler.HandleSync)
			r.Get("/users/{clerkUserID}", userHandler.HandleGet)
			r.Post("/users", userHandler.HandleCreate)
			r.Put("/users/{clerkUserID}", userHandler.HandleUpdate)
			r.Delete("/users/{clerkUserID}", userHandler.HandleDelete)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30s,
// close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
