// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It decides:
// - Which post store and which session store back the app
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New() creates:
//	  filestore | sqlite | memory  → PostService → PostHandler
//	  credentials + tokens + session.Store → AuthService → AuthHandler, auth middleware
//
// This is the "composition root" pattern: all dependencies are wired in one
// place, rather than scattered across the codebase.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/fileblog/internal/auth"
	"github.com/sakif/fileblog/internal/config"
	"github.com/sakif/fileblog/internal/handler"
	"github.com/sakif/fileblog/internal/middleware"
	"github.com/sakif/fileblog/internal/repository"
	"github.com/sakif/fileblog/internal/repository/filestore"
	"github.com/sakif/fileblog/internal/repository/memory"
	sqliteRepo "github.com/sakif/fileblog/internal/repository/sqlite"
	"github.com/sakif/fileblog/internal/service"
	"github.com/sakif/fileblog/internal/session"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server may own a SQLite connection and a redis client. Both are closed
// by Close, which Start calls on the way out.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	closers []func() error
}

// New creates a Server from cfg. On error every resource opened so far is
// released again.
func New(cfg *config.Config, logger *slog.Logger) (_ *Server, err error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	posts, err := s.openPostStore()
	if err != nil {
		return nil, err
	}

	authService, err := s.newAuthService()
	if err != nil {
		return nil, err
	}

	postService := service.NewPostService(posts, logger)
	s.setupRoutes(authService, postService)

	return s, nil
}

// openPostStore picks the repository named by STORE_DRIVER.
func (s *Server) openPostStore() (repository.PostRepository, error) {
	switch s.config.StoreDriver {
	case config.StoreFile:
		store, err := filestore.New(s.config.PostsPath, filestore.WithLockTimeout(s.config.StoreLockTimeout))
		if err != nil {
			return nil, fmt.Errorf("opening post file: %w", err)
		}
		s.logger.Info("using file post store", slog.String("path", store.Path()))
		return store, nil

	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(s.config.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		db, err := sqliteRepo.New(s.config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		s.logger.Info("using sqlite post store", slog.String("path", s.config.SQLitePath))
		return db, nil

	case config.StoreMemory:
		s.logger.Warn("using in-memory post store, posts are lost on restart")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", s.config.StoreDriver)
}

// newAuthService builds the access controller and its session backend.
func (s *Server) newAuthService() (*service.AuthService, error) {
	creds, err := auth.ParseCredentials(s.config.Credentials)
	if err != nil {
		return nil, err
	}

	secret := s.config.SessionSecret
	if secret == "" {
		// Every restart signs with a new key and logs everybody out.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generating session secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		s.logger.Warn("SESSION_SECRET not set, using a random per-process secret")
	}
	tokens, err := auth.NewTokenService(secret)
	if err != nil {
		return nil, err
	}

	var sessions session.Store
	switch s.config.SessionBackend {
	case config.SessionRedis:
		client, err := session.NewRedisClient(context.Background(), s.config.RedisURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		sessions = session.NewRedisStore(client)
		s.logger.Info("using redis session store")
	default:
		sessions = session.NewMemoryStore()
	}

	return service.NewAuthService(creds, tokens, sessions, s.config.SessionTTL, s.logger), nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// POST   /login             → open a session (sets the sid cookie)
// POST   /logout            → close it
// GET    /session           → who am I ({"user": null} when anonymous)
// GET    /posts             → every post, newest first
// GET    /posts/mine        → the caller's posts                [auth]
// GET    /posts/{id}        → one post
// GET    /posts/{id}/html   → one post rendered from markdown
// POST   /posts             → publish                           [auth]
// PUT    /posts/{id}        → edit own post                     [auth]
// DELETE /posts/{id}        → delete own post                   [auth]
// GET    /healthz, /metrics → probes
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Metrics: counts requests per route pattern
// 5. Recoverer: catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes(authService *service.AuthService, postService *service.PostService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)

	authHandler := handler.NewAuthHandler(authService, s.config.CookieSecure, s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)

	s.router.Get("/healthz", handler.HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Post("/logout", authHandler.HandleLogout)
	s.router.With(auth.OptionalAuth(authService)).Get("/session", authHandler.HandleSession)

	s.router.Get("/posts", postHandler.HandleList)
	s.router.Get("/posts/{id}", postHandler.HandleGet)
	s.router.Get("/posts/{id}/html", postHandler.HandleHTML)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(authService))
		r.Get("/posts/mine", postHandler.HandleListMine)
		r.Post("/posts", postHandler.HandleCreate)
		r.Put("/posts/{id}", postHandler.HandleUpdate)
		r.Delete("/posts/{id}", postHandler.HandleDelete)
	})

	// Optional front-end. Registered last so API routes always win.
	if s.config.StaticDir != "" {
		s.router.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and redis connections, if any.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database and redis connections
//
// A write that is mid-rename when the signal arrives still completes: the
// request keeps running until Shutdown's deadline.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("failed to release resources", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", s.config.StoreDriver),
			slog.String("sessions", s.config.SessionBackend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
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
