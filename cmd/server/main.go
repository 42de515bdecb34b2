package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/glyphlab/emoji-maker/config"
	"github.com/glyphlab/emoji-maker/internal/middleware"
	"github.com/glyphlab/emoji-maker/internal/migrate"
	"github.com/glyphlab/emoji-maker/internal/replicate"
	"github.com/glyphlab/emoji-maker/internal/services/emoji"
	"github.com/glyphlab/emoji-maker/internal/services/generation"
	"github.com/glyphlab/emoji-maker/internal/services/profile"
	"github.com/glyphlab/emoji-maker/pkg/database"
	"github.com/glyphlab/emoji-maker/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Apply schema migrations
	if err := migrate.Up(context.Background(), cfg.Database.URL); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	// Connect to PostgreSQL
	db, err := database.NewPostgresPool(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer db.Close()
	log.Info().Msg("Connected to PostgreSQL")

	// Connect to Redis
	redisClient, err := database.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	log.Info().Msg("Connected to Redis")

	// Connect to MinIO
	store, err := storage.Connect(storage.Options{
		Endpoint:   cfg.Storage.Endpoint,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		UseSSL:     cfg.Storage.UseSSL,
		Bucket:     cfg.Storage.Bucket,
		CDNBaseURL: cfg.Storage.CDNBaseURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MinIO")
	}

	// Inference provider client
	replicateClient := replicate.NewClient(cfg.Replicate.Token, cfg.Replicate.Version)

	// Initialize services
	profileService := profile.NewService(db)
	emojiService := emoji.NewService(db)
	generationService := generation.NewService(db, store, replicateClient, cfg.Replicate.Timeout)

	// Initialize handlers
	profileHandler := profile.NewHandler(profileService)
	emojiHandler := emoji.NewHandler(emojiService)
	generationHandler := generation.NewHandler(generationService)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RecoveryMiddleware)
	r.Use(chimiddleware.RedirectSlashes)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "Origin"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(2 * time.Minute))

		// Public catalog; a bearer token is optional and only adds the
		// viewer's liked flags
		r.With(middleware.OptionalAuthMiddleware(cfg.JWT.Secret)).
			Get("/emojis", emojiHandler.List)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
			r.Use(middleware.RateLimitMiddleware(redisClient, cfg.Server.RateLimitRPS))

			r.Post("/auth", profileHandler.Bootstrap)
			r.Post("/generate-emoji", generationHandler.Generate)
			r.Post("/emojis/like", emojiHandler.ToggleLike)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Server.Port,
		Handler: r,
	}

	// Start server
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting Emoji Maker API")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
