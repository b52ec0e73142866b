package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyunwoo-kim/docchat/internal/api"
	"github.com/hyunwoo-kim/docchat/internal/api/handler"
	"github.com/hyunwoo-kim/docchat/internal/assistant"
	"github.com/hyunwoo-kim/docchat/internal/config"
	"github.com/hyunwoo-kim/docchat/internal/domain"
	"github.com/hyunwoo-kim/docchat/internal/repository/mongo"
	"github.com/hyunwoo-kim/docchat/internal/repository/postgres"
	"github.com/hyunwoo-kim/docchat/internal/repository/redis"
	"github.com/hyunwoo-kim/docchat/internal/usage"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Logging)

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Msg("Starting chat API server")

	// Initialize storage
	sessionRepo, messageRepo, usageRepo, store, closeStore, err := buildStorage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to storage")
	}
	defer closeStore()

	// Initialize Redis (optional)
	var redisClient *redis.Client
	redisClient, err = redis.NewClient(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without cache and rate limiting")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Initialize assistant client
	assistantClient, err := assistant.NewOpenAIClient(context.Background(), cfg.Assistant, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize assistant client")
	}

	// Initialize titler (optional)
	var titler assistant.Titler
	geminiTitler := assistant.NewGeminiTitler(cfg.Titler)
	if geminiTitler.IsConfigured() {
		titler = geminiTitler
	} else {
		log.Warn().Msg("Titler API key is empty, session titles fall back to truncation")
	}

	// Initialize usage tracker
	tracker := usage.NewTracker(usageRepo, cfg.Usage, log.Logger)
	defer tracker.Close()

	// Initialize router
	router := api.NewRouter(api.Deps{
		Config:      cfg,
		SessionRepo: sessionRepo,
		MessageRepo: messageRepo,
		UsageRepo:   usageRepo,
		Store:       store,
		Redis:       redisClient,
		Assistant:   assistantClient,
		Titler:      titler,
		Tracker:     tracker,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// buildStorage wires the repositories for the configured driver.
func buildStorage(cfg *config.Config) (domain.SessionRepository, domain.MessageRepository, domain.UsageRepository, handler.Pinger, func(), error) {
	switch cfg.Storage.Driver {
	case "mongo":
		store, err := mongo.NewStore(context.Background(), cfg.Mongo)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		closeStore := func() {
			if err := store.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("Failed to close mongo store")
			}
		}
		return mongo.NewSessionRepository(store),
			mongo.NewMessageRepository(store),
			mongo.NewUsageRepository(store),
			store, closeStore, nil

	case "postgres", "":
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		return postgres.NewSessionRepository(db),
			postgres.NewMessageRepository(db),
			postgres.NewUsageRepository(db),
			db, db.Close, nil

	default:
		return nil, nil, nil, nil, nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

// setupLogger configures zerolog output, level and optional rotation.
func setupLogger(cfg config.LoggingConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writers []io.Writer

	if cfg.Format == "console" || os.Getenv("ENV") != "production" {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		writers = append(writers, os.Stderr)
	}

	if cfg.File != "" {
		rotator, err := rotatelogs.New(
			cfg.File+".%Y%m%d",
			rotatelogs.WithLinkName(cfg.File),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithMaxAge(7*24*time.Hour),
		)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.File).Msg("Failed to open log file, logging to stderr only")
		} else {
			writers = append(writers, rotator)
		}
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}
