package services

import (
	"context"
	"fmt"

	"travel-feed-backend/internal/models"
	"travel-feed-backend/internal/repository"
	"travel-feed-backend/internal/tagindex"

	"github.com/rs/zerolog/log"
)

// MediaRemover deletes stored picture objects
type MediaRemover interface {
	DeleteObjects(ctx context.Context, keys []string) error
}

// TripService handles trip lifecycle operations owned by the feed core
type TripService struct {
	trips repository.TripStore
	tags  tagindex.Index
	media MediaRemover
}

// NewTripService creates a new trip service. media may be nil.
func NewTripService(trips repository.TripStore, tags tagindex.Index, media MediaRemover) *TripService {
	return &TripService{
		trips: trips,
		tags:  tags,
		media: media,
	}
}

// DeleteTrip removes a trip owned by viewerID together with its places,
// pictures, likes and tags. The store delete is the commit point; the index
// entry and stored picture objects are cleaned up afterwards and a failure
// there is logged, not returned.
func (s *TripService) DeleteTrip(ctx context.Context, viewerID, tripID string) error {
	if viewerID == "" {
		return models.ErrUnauthenticated
	}

	trip, err := s.trips.Delete(ctx, tripID, viewerID)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}

	log.Info().
		Str("user_id", viewerID).
		Str("trip_id", tripID).
		Int("places", len(trip.Places)).
		Msg("Trip deleted")

	if err := s.tags.Remove(ctx, tripID); err != nil {
		log.Error().Err(err).Str("trip_id", tripID).Msg("Failed to remove trip from tag index")
	}

	if keys := trip.StorageIDs(); s.media != nil && len(keys) > 0 {
		if err := s.media.DeleteObjects(ctx, keys); err != nil {
			log.Error().
				Err(err).
				Str("trip_id", tripID).
				Int("objects", len(keys)).
				Msg("Failed to delete picture objects")
		}
	}

	return nil
}
