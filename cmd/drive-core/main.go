package main

// @title           Drive Core API
// @version         1.0
// @description     Google Drive integration backend. Manages the OAuth token lifecycle for connected accounts and proxies file operations to Drive.

// @contact.name   Clearfile Labs
// @contact.url    https://github.com/clearfile-labs/drive-core/issues

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Signed identity token. Format: "Bearer {token}"

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clearfile-labs/drive-core/internal/adapters/driven/auth"
	"github.com/clearfile-labs/drive-core/internal/adapters/driven/google"
	"github.com/clearfile-labs/drive-core/internal/adapters/driven/postgres"
	redisadapter "github.com/clearfile-labs/drive-core/internal/adapters/driven/redis"
	httpserver "github.com/clearfile-labs/drive-core/internal/adapters/driving/http"
	"github.com/clearfile-labs/drive-core/internal/config"
	"github.com/clearfile-labs/drive-core/internal/core/ports/driven"
	"github.com/clearfile-labs/drive-core/internal/core/services"
)

var version = "dev"

// stateCleanupInterval is how often expired PostgreSQL-backed states are
// swept. Redis states expire natively and need no sweep.
const stateCleanupInterval = 10 * time.Minute

func main() {
	log.Printf("drive-core %s starting", version)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== Initialize PostgreSQL =====
	log.Println("Connecting to PostgreSQL...")
	db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize schema (idempotent)
	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("PostgreSQL connected and schema initialized")

	// ===== Initialize Redis (optional) =====
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	// ===== Token encryption =====
	cipher, err := postgres.NewTokenCipher(cfg.TokenEncryptionKey)
	if err != nil {
		log.Fatalf("Failed to initialize token cipher: %v", err)
	}

	// ===== State Store (Redis if available, otherwise PostgreSQL) =====
	var stateStore driven.OAuthStateStore
	if redisClient != nil {
		stateStore = redisadapter.NewStateStore(redisClient)
		log.Println("Using Redis state store")
	} else {
		pgStates := postgres.NewStateStore(db)
		stateStore = pgStates
		go pgStates.RunCleanup(ctx, stateCleanupInterval, func(err error) {
			log.Printf("State cleanup failed: %v", err)
		})
		log.Println("Using PostgreSQL state store")
	}

	// ===== Driven adapters (infrastructure) =====
	credentialStore := postgres.NewCredentialStore(db, cipher)
	identityVerifier := auth.NewAdapter(cfg.IdentityJWTSecret)
	provider := google.NewProvider(google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
	})
	driveClient := google.NewDriveClient()

	// ===== Services (core business logic) =====
	oauthService := services.NewOAuthService(services.OAuthServiceConfig{
		StateStore:      stateStore,
		CredentialStore: credentialStore,
		Provider:        provider,
		StateTTL:        cfg.StateTTL,
		Logger:          slog.Default(),
	})
	driveService := services.NewDriveService(oauthService, driveClient)

	// ===== HTTP server =====
	var redisPinger httpserver.Pinger
	if redisClient != nil {
		redisPinger = redisPingAdapter{client: redisClient}
	}

	server := httpserver.NewServer(
		httpserver.Config{
			Host:               "0.0.0.0",
			Port:               cfg.Port,
			Version:            version,
			DefaultCallbackURL: cfg.DefaultCallbackURL,
			AllowedOrigins:     cfg.AllowedOrigins,
		},
		oauthService,
		driveService,
		identityVerifier,
		db,
		redisPinger,
	)

	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// redisPingAdapter bridges the go-redis client to the server's Pinger.
type redisPingAdapter struct {
	client *redis.Client
}

func (a redisPingAdapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}
