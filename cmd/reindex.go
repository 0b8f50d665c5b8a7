package cmd

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"travel-feed-backend/internal/config"
	"travel-feed-backend/internal/models"
	"travel-feed-backend/internal/repository"
	"travel-feed-backend/internal/scoring"
	"travel-feed-backend/internal/tagindex"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Reindex recomputes every trip's like count and trending score and rebuilds
// the tag index. Run it after bulk imports or a scoring change.
func Reindex() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg.Log.Level)

	ctx := context.Background()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer b.Close()

	start := time.Now()
	n, err := rescoreAll(ctx, b.trips, scoring.NewMaintainer(b.likes), runtime.NumCPU())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to recompute scores")
	}

	if err := tagindex.Rebuild(ctx, b.tags, b.tagSource); err != nil {
		log.Fatal().Err(err).Msg("Failed to rebuild tag index")
	}

	log.Info().
		Int("trips", n).
		Dur("took", time.Since(start)).
		Msg("Reindex finished")
}

// rescoreAll recomputes the score of every trip with at most workers in flight.
// It returns how many trips were rescored; trips deleted meanwhile are not counted.
func rescoreAll(ctx context.Context, trips repository.TripStore, scores *scoring.Maintainer, workers int) (int, error) {
	ids, err := trips.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		g.Go(func() error {
			if _, err := scores.Recompute(gctx, id); err != nil {
				if errors.Is(err, models.ErrNotFound) {
					// deleted since ListIDs
					return nil
				}
				return err
			}
			if n := done.Add(1); n%1000 == 0 {
				log.Info().Int64("done", n).Int("total", len(ids)).Msg("Rescoring trips")
			}
			return nil
		})
	}
	err = g.Wait()
	return int(done.Load()), err
}
