package scoring

import (
	"context"
	"fmt"

	"travel-feed-backend/internal/models"
	"travel-feed-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// Maintainer keeps trips' cached trending scores in step with their likes
type Maintainer struct {
	likes repository.LikeStore
}

// NewMaintainer creates a maintainer writing through likes
func NewMaintainer(likes repository.LikeStore) *Maintainer {
	return &Maintainer{likes: likes}
}

// Recompute recalculates a trip's score under the trip lock and returns the
// trip with the refreshed like count and score.
func (m *Maintainer) Recompute(ctx context.Context, tripID string) (*models.Trip, error) {
	var trip *models.Trip
	err := m.likes.WithTripLock(ctx, tripID, func(tx repository.LikeTx) error {
		if err := m.RecomputeTx(ctx, tx); err != nil {
			return err
		}
		trip = tx.Trip()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to recompute score: %w", err)
	}
	return trip, nil
}

// RecomputeTx recalculates the score inside a transaction the caller already holds.
// The like count is read in the same transaction that writes the score, so two
// toggles on one trip can never both score from the same pre-toggle count.
func (m *Maintainer) RecomputeTx(ctx context.Context, tx repository.LikeTx) error {
	count, err := tx.CountLikes(ctx)
	if err != nil {
		return err
	}

	trip := tx.Trip()
	score := Score(count, trip.CreatedAt)
	if err := tx.SetScore(ctx, count, score); err != nil {
		return err
	}

	log.Debug().
		Str("trip_id", trip.ID).
		Int("like_count", count).
		Float64("score", score).
		Msg("Trending score recomputed")
	return nil
}
