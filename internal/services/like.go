package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"travel-feed-backend/internal/models"
	"travel-feed-backend/internal/repository"
	"travel-feed-backend/internal/scoring"

	"github.com/rs/zerolog/log"
)

// LikeNotifier is told about committed like transitions
type LikeNotifier interface {
	LikeChanged(ctx context.Context, event LikeEvent)
}

// LikeEvent describes one committed toggle
type LikeEvent struct {
	TripID    string
	OwnerID   string
	ViewerID  string
	Liked     bool
	LikeCount int
	Score     float64
}

// ToggleResult is the outcome of a toggle
type ToggleResult struct {
	Trip  *models.Trip
	Liked bool
}

// notifyTimeout bounds one notification, which outlives its request
const notifyTimeout = 10 * time.Second

// LikeService flips like membership and keeps the trending score current
type LikeService struct {
	likes    repository.LikeStore
	trips    repository.TripStore
	scores   *scoring.Maintainer
	notifier LikeNotifier

	pending sync.WaitGroup
}

// NewLikeService creates a new like service. notifier may be nil.
func NewLikeService(likes repository.LikeStore, trips repository.TripStore, scores *scoring.Maintainer, notifier LikeNotifier) *LikeService {
	return &LikeService{
		likes:    likes,
		trips:    trips,
		scores:   scores,
		notifier: notifier,
	}
}

// Toggle likes the trip if viewerID has not liked it, otherwise unlikes it.
// The membership change and the score recompute commit in one transaction.
// A ConcurrencyConflict is retried once before being returned.
func (s *LikeService) Toggle(ctx context.Context, viewerID, tripID string) (*ToggleResult, error) {
	if viewerID == "" {
		return nil, models.ErrUnauthenticated
	}

	liked, committed, err := s.toggleOnce(ctx, viewerID, tripID)
	if errors.Is(err, models.ErrConcurrencyConflict) {
		log.Warn().
			Err(err).
			Str("user_id", viewerID).
			Str("trip_id", tripID).
			Msg("Like toggle conflicted, retrying")
		liked, committed, err = s.toggleOnce(ctx, viewerID, tripID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle like: %w", err)
	}

	// The toggle has committed from here on; only the response shape is left
	trip, err := s.trips.GetByID(ctx, tripID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		// deleted right after the toggle; report what was committed
		trip = committed
	case err != nil:
		return nil, fmt.Errorf("failed to reload trip: %w", err)
	}

	log.Info().
		Str("user_id", viewerID).
		Str("trip_id", tripID).
		Bool("liked", liked).
		Int("like_count", trip.LikeCount).
		Msg("Like toggled")

	s.notify(ctx, LikeEvent{
		TripID:    trip.ID,
		OwnerID:   trip.OwnerID,
		ViewerID:  viewerID,
		Liked:     liked,
		LikeCount: trip.LikeCount,
		Score:     trip.TrendingScore,
	})

	return &ToggleResult{Trip: trip, Liked: liked}, nil
}

// notify hands event to the notifier in the background so push latency
// never reaches the like response. The request's values are kept but not
// its cancellation.
func (s *LikeService) notify(ctx context.Context, event LikeEvent) {
	if s.notifier == nil {
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		s.notifier.LikeChanged(nctx, event)
	}()
}

// Wait blocks until every notification started so far has finished
func (s *LikeService) Wait() {
	s.pending.Wait()
}

// toggleOnce returns the new membership and the trip as committed, without places
func (s *LikeService) toggleOnce(ctx context.Context, viewerID, tripID string) (bool, *models.Trip, error) {
	var (
		liked     bool
		committed *models.Trip
	)
	err := s.likes.WithTripLock(ctx, tripID, func(tx repository.LikeTx) error {
		has, err := tx.HasLike(ctx, viewerID)
		if err != nil {
			return err
		}

		if has {
			if err := tx.RemoveLike(ctx, viewerID); err != nil {
				return err
			}
		} else {
			if err := tx.AddLike(ctx, viewerID); err != nil {
				return err
			}
		}
		liked = !has

		if err := s.scores.RecomputeTx(ctx, tx); err != nil {
			return err
		}
		committed = tx.Trip()
		return nil
	})
	return liked, committed, err
}
