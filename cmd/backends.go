package cmd

import (
	"context"
	"fmt"

	"travel-feed-backend/internal/config"
	"travel-feed-backend/internal/repository"
	"travel-feed-backend/internal/repository/memory"
	"travel-feed-backend/internal/tagindex"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// backends bundles the stores and the tag index selected by configuration
type backends struct {
	trips      repository.TripStore
	users      repository.UserStore
	likes      repository.LikeStore
	tagSource  repository.TagSource
	tagWatcher repository.TagWatcher
	tags       tagindex.Index

	closers []func()
}

// Close releases connections in reverse order of opening
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		store := memory.New()
		if cfg.Store.SeedFile != "" {
			if err := store.LoadSeed(cfg.Store.SeedFile); err != nil {
				return nil, err
			}
			log.Info().Str("seed_file", cfg.Store.SeedFile).Msg("Memory store seeded")
		}
		b.trips = store
		b.users = store.Users()
		b.likes = store
		b.tagSource = store
		b.tagWatcher = store
		log.Warn().Msg("Using in-memory store, data is lost on restart")

	default:
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		b.closers = append(b.closers, db.Close)

		if err := db.Ping(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		log.Info().Msg("Database connection established")

		if err := repository.Migrate(ctx, db); err != nil {
			b.Close()
			return nil, err
		}

		b.trips = repository.NewTripRepository(db)
		b.users = repository.NewUserRepository(db)
		b.likes = repository.NewLikeRepository(db)
		tagRepo := repository.NewTagRepository(db)
		b.tagSource = tagRepo
		b.tagWatcher = tagRepo
	}

	switch cfg.TagIndex.Backend {
	case config.TagIndexRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() {
			if err := client.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close Redis client")
			}
		})

		if err := client.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")
		b.tags = tagindex.NewRedisIndex(client, cfg.TagIndex.Prefix)

	default:
		b.tags = tagindex.NewMemoryIndex()
	}

	return b, nil
}
