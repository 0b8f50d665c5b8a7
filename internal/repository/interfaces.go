package repository

import (
	"context"

	"travel-feed-backend/internal/models"
)

// TripStore reads trips and performs the cascading trip delete
type TripStore interface {
	// List returns one page of trips matching q together with the number of
	// trips matching q's filters (ignoring Limit/Offset). Both are read from
	// the same snapshot.
	List(ctx context.Context, q models.TripQuery) ([]*models.Trip, int, error)

	// GetByID returns a trip with places, pictures and tags attached
	GetByID(ctx context.Context, id string) (*models.Trip, error)

	// LikedBy reports which of tripIDs userID has liked
	LikedBy(ctx context.Context, userID string, tripIDs []string) (map[string]bool, error)

	// Delete removes the trip and everything it owns in one transaction.
	// Returns ErrForbidden when ownerID does not own the trip.
	Delete(ctx context.Context, id, ownerID string) (*models.Trip, error)

	// ListIDs returns every trip id, newest first
	ListIDs(ctx context.Context) ([]string, error)
}

// UserStore reads users
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// TagSource is the authority the tag index is rebuilt from
type TagSource interface {
	// AllTripTags returns trip id -> tags for every trip carrying tags
	AllTripTags(ctx context.Context) (map[string][]string, error)
	// TripTags returns the current tags of one trip, sorted. A missing trip has none.
	TripTags(ctx context.Context, tripID string) ([]string, error)
}

// TagWatcher reports trips whose tag set changed after commit
type TagWatcher interface {
	// WatchTags blocks until ctx ends or the subscription fails. subscribed
	// runs once the subscription is live and before any onChange call;
	// changes committed while it runs are delivered afterwards. onChange is
	// called from a single goroutine.
	WatchTags(ctx context.Context, subscribed func(), onChange func(tripID string)) error
}

// LikeStore runs like transitions under a per-trip lock
type LikeStore interface {
	// WithTripLock runs fn in a transaction holding an exclusive lock on the
	// trip row. Everything fn writes commits together when fn returns nil and
	// the context is still live; otherwise nothing is applied.
	// Returns ErrNotFound when the trip does not exist.
	WithTripLock(ctx context.Context, tripID string, fn func(tx LikeTx) error) error
}

// LikeTx is the view of a single trip inside WithTripLock
type LikeTx interface {
	// Trip returns the locked trip as read at lock time (no places attached)
	Trip() *models.Trip
	HasLike(ctx context.Context, userID string) (bool, error)
	// AddLike returns ErrConcurrencyConflict if the membership already exists
	AddLike(ctx context.Context, userID string) error
	RemoveLike(ctx context.Context, userID string) error
	CountLikes(ctx context.Context) (int, error)
	SetScore(ctx context.Context, likeCount int, score float64) error
}
