package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travel-feed-backend/internal/config"
	"travel-feed-backend/internal/handlers"
	"travel-feed-backend/internal/middleware"
	"travel-feed-backend/internal/scoring"
	"travel-feed-backend/internal/services"
	"travel-feed-backend/internal/tagindex"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// tagFollowRetry is the pause before resubscribing to tag changes
const tagFollowRetry = 5 * time.Second

func Run() {
	// Load configuration
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx := context.Background()

	// Connect to storage and build the tag index
	b, err := openBackends(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer b.Close()

	if err := tagindex.Rebuild(ctx, b.tags, b.tagSource); err != nil {
		log.Fatal().Err(err).Msg("Failed to build tag index")
	}

	// Keep the tag index in step with trips authored from now on
	followCtx, stopFollow := context.WithCancel(ctx)
	defer stopFollow()
	go tagindex.Follow(followCtx, b.tags, b.tagSource, b.tagWatcher, tagFollowRetry)

	// Optional integrations
	var media services.MediaRemover
	if cfg.AWS.S3Bucket != "" {
		store, err := services.NewMediaStore(ctx,
			cfg.AWS.Region,
			cfg.AWS.S3Bucket,
			cfg.AWS.AccessKey,
			cfg.AWS.SecretKey,
			cfg.AWS.Endpoint,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create media store")
		}
		media = store
	} else {
		log.Warn().Msg("aws.s3_bucket not set, stored pictures are kept on trip delete")
	}

	var pusher services.Pusher
	if cfg.APNs.KeyFile != "" {
		notifier, err := services.NewPushNotifier(
			cfg.APNs.KeyFile,
			cfg.APNs.KeyID,
			cfg.APNs.TeamID,
			cfg.APNs.Topic,
			cfg.APNs.Production,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create push notifier")
		}
		pusher = notifier
	}

	// Initialize services
	authService := services.NewAuthService(cfg.JWT.Secret)
	wsHub := services.NewWSHub()
	dispatcher := services.NewLikeDispatcher(wsHub, pusher, b.users)
	scores := scoring.NewMaintainer(b.likes)
	feedService := services.NewFeedService(b.trips, b.users, b.tags)
	likeService := services.NewLikeService(b.likes, b.trips, scores, dispatcher)
	tripService := services.NewTripService(b.trips, b.tags, media)

	// Initialize handlers
	tripHandler := handlers.NewTripHandler(feedService, likeService, tripService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, authService)

	r := newRouter(authService, tripHandler, wsHandler)

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
			Str("store", cfg.Store.Driver).
			Str("tag_index", cfg.TagIndex.Backend).
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	likeService.Wait()

	log.Info().Msg("Server exited")
}

func newRouter(auth middleware.TokenValidator, tripHandler *handlers.TripHandler, wsHandler *handlers.WebSocketHandler) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Anonymous viewers allowed
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(auth))
			r.Get("/trips", tripHandler.ListRecent)
			r.Get("/trips/trending", tripHandler.Trending)
			r.Post("/trips/search", tripHandler.Search)
			r.Get("/trips/{trip_id}", tripHandler.GetTrip)
			r.Get("/users/{user_id}/trips", tripHandler.ListUserTrips)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(auth))
			r.Post("/trips/{trip_id}/like", tripHandler.ToggleLike)
			r.Delete("/trips/{trip_id}", tripHandler.DeleteTrip)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	return r
}

// setupLogger points the global zerolog logger at stderr. Unknown levels fall back to info.
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Retry-After")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
