package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clearfile-labs/drive-core/internal/core/ports/driven"
	"github.com/clearfile-labs/drive-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// defaultCallbackURL is the redirect target when a callback fails and
	// no flow-specific URL is known.
	defaultCallbackURL string

	// Services
	oauthService driving.OAuthService
	driveService driving.DriveService

	// Infrastructure
	identityVerifier driven.IdentityVerifier
	db               Pinger // PostgreSQL health check
	redisClient      Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host               string
	Port               int
	Version            string
	DefaultCallbackURL string
	AllowedOrigins     []string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		Version:            "dev",
		DefaultCallbackURL: "http://localhost:5173/callback",
		AllowedOrigins:     []string{"http://localhost:5173"},
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	oauthService driving.OAuthService,
	driveService driving.DriveService,
	identityVerifier driven.IdentityVerifier,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:             http.NewServeMux(),
		version:            cfg.Version,
		defaultCallbackURL: cfg.DefaultCallbackURL,
		oauthService:       oauthService,
		driveService:       driveService,
		identityVerifier:   identityVerifier,
		db:                 db,
		redisClient:        redisClient,
	}

	// Middleware applied to all routes
	logging := NewLoggingMiddleware()
	recovery := NewRecoveryMiddleware()
	cors := NewCORSMiddleware(cfg.AllowedOrigins)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      recovery.Handler(logging.Handler(cors.Handler(s.router))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	identity := NewIdentityMiddleware(s.identityVerifier)

	// Health endpoints (no identity)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Auth flow endpoints
	s.router.Handle("GET /auth",
		identity.Authenticate(http.HandlerFunc(s.handleAuth)))
	// Callback endpoints are public - they receive redirects from the
	// provider, which carries no caller identity.
	s.router.HandleFunc("GET /auth/callback", s.handleAuthCallback)
	s.router.HandleFunc("POST /auth/callback2", s.handleAuthCallback2)

	s.router.Handle("GET /auth/status",
		identity.Authenticate(http.HandlerFunc(s.handleAuthStatus)))
	s.router.Handle("GET /auth/token",
		identity.Authenticate(http.HandlerFunc(s.handleAuthToken)))
	s.router.Handle("POST /auth/disconnect",
		identity.Authenticate(http.HandlerFunc(s.handleDisconnect)))

	// Drive endpoints
	s.router.Handle("GET /drive/files",
		identity.Authenticate(http.HandlerFunc(s.handleListFiles)))
	s.router.Handle("POST /drive/upload",
		identity.Authenticate(http.HandlerFunc(s.handleUploadFile)))
	s.router.Handle("POST /drive/create-file",
		identity.Authenticate(http.HandlerFunc(s.handleCreateFile)))
	s.router.Handle("GET /drive/download-file",
		identity.Authenticate(http.HandlerFunc(s.handleDownloadFile)))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
