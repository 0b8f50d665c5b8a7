package tagindex

import (
	"context"
	"time"

	"travel-feed-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// Follow keeps idx in step with src until ctx ends. It subscribes to tag
// changes before each rebuild, so nothing committed in between is missed.
// A failed subscription is retried after retry with a fresh rebuild.
func Follow(ctx context.Context, idx Index, src repository.TagSource, watcher repository.TagWatcher, retry time.Duration) {
	for {
		err := watcher.WatchTags(ctx,
			func() {
				if err := Rebuild(ctx, idx, src); err != nil {
					log.Error().Err(err).Msg("Failed to rebuild tag index")
				}
			},
			func(tripID string) {
				if err := Refresh(ctx, idx, src, tripID); err != nil {
					log.Error().Err(err).Str("trip_id", tripID).Msg("Failed to refresh tag index")
				}
			},
		)
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Dur("retry_in", retry).Msg("Tag change subscription lost")

		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}
