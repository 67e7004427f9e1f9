package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remote-shoot-backend/internal/config"
	"remote-shoot-backend/internal/handlers"
	"remote-shoot-backend/internal/repository"
	"remote-shoot-backend/internal/router"
	"remote-shoot-backend/internal/services"
	"remote-shoot-backend/internal/storage"
	"remote-shoot-backend/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling relay and session API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	clock := store.SystemClock()

	// Session registry backend
	var sessions store.SessionStore
	switch cfg.Store.Backend {
	case "postgres":
		db, err := pgxpool.New(context.Background(), cfg.Store.Database.DSN())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		if err := db.Ping(context.Background()); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		repo := repository.NewSessionRepository(db, clock)
		if err := repo.Migrate(context.Background()); err != nil {
			return fmt.Errorf("failed to migrate sessions table: %w", err)
		}
		sessions = repo
		log.Info().Msg("Database connection established")
	case "memory":
		sessions = store.NewMemorySessionStore(clock)
	default:
		return fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}

	// Capture storage backend
	var blobs storage.BlobStore
	switch cfg.Storage.Backend {
	case "s3":
		blobs, err = storage.NewS3Store(
			context.Background(),
			cfg.Storage.S3.Region,
			cfg.Storage.S3.Bucket,
			cfg.Storage.S3.AccessKey,
			cfg.Storage.S3.SecretKey,
			cfg.Storage.S3.Endpoint,
		)
		if err != nil {
			return fmt.Errorf("failed to create S3 store: %w", err)
		}
	case "local":
		blobs = storage.NewLocalStore(cfg.Storage.Dir)
	default:
		return fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}

	// Initialize services
	rooms := store.NewRoomStore(clock)
	hub := services.NewSignalHub()
	signaling := services.NewSignalingService(rooms, hub)
	sessionService := services.NewSessionService(sessions, signaling, clock, cfg.Server.Origin)
	photoService := services.NewPhotoService(sessions, blobs, clock)

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(sessionService)
	signalingHandler := handlers.NewSignalingHandler(signaling)
	photoHandler := handlers.NewPhotoHandler(photoService)
	wsHandler := handlers.NewWebSocketHandler(hub, signaling)

	// Contact mail goes out only when SMTP is configured
	var contactHandler *handlers.ContactHandler
	if cfg.SMTP.Host != "" {
		contactHandler = handlers.NewContactHandler(services.NewSMTPMailer(cfg.SMTP))
	}

	r := router.New(sessionHandler, signalingHandler, photoHandler, wsHandler, contactHandler)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("origin", cfg.Server.Origin).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
