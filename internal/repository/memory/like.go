package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"travel-feed-backend/internal/models"
	"travel-feed-backend/internal/repository"
)

// WithTripLock serialises fn against every other like transition on the trip.
// fn works on a staged copy of the trip's like set; the copy is published in
// one step after fn succeeds and only if ctx is still live.
func (s *Store) WithTripLock(ctx context.Context, tripID string, fn func(tx repository.LikeTx) error) error {
	lock := s.tripLock(tripID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	t, ok := s.trips[tripID]
	if !ok {
		s.mu.RUnlock()
		return fmt.Errorf("trip not found: %w", models.ErrNotFound)
	}
	tx := &memLikeTx{
		store: s,
		trip:  t.Clone(),
		likes: make(map[string]time.Time, len(s.likes[tripID])),
	}
	for uid, at := range s.likes[tripID] {
		tx.likes[uid] = at
	}
	s.mu.RUnlock()
	tx.trip.Places = nil

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.trips[tripID]
	if !ok {
		// deleted while the lock was held; the delete wins
		return fmt.Errorf("trip not found: %w", models.ErrNotFound)
	}
	s.likes[tripID] = tx.likes
	if tx.scored {
		current.LikeCount = tx.trip.LikeCount
		current.TrendingScore = tx.trip.TrendingScore
	}
	return nil
}

func (s *Store) tripLock(tripID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.tripLocks[tripID]
	if !ok {
		lock = &sync.Mutex{}
		s.tripLocks[tripID] = lock
	}
	return lock
}

type memLikeTx struct {
	store  *Store
	trip   *models.Trip
	likes  map[string]time.Time
	scored bool
}

func (t *memLikeTx) Trip() *models.Trip {
	return t.trip
}

func (t *memLikeTx) HasLike(ctx context.Context, userID string) (bool, error) {
	_, ok := t.likes[userID]
	return ok, nil
}

func (t *memLikeTx) AddLike(ctx context.Context, userID string) error {
	if ok, _ := t.store.Exists(ctx, userID); !ok {
		return fmt.Errorf("user not found: %w", models.ErrNotFound)
	}
	if _, ok := t.likes[userID]; ok {
		return fmt.Errorf("like already exists: %w", models.ErrConcurrencyConflict)
	}
	t.likes[userID] = time.Now()
	return nil
}

func (t *memLikeTx) RemoveLike(ctx context.Context, userID string) error {
	if _, ok := t.likes[userID]; !ok {
		return fmt.Errorf("like vanished during toggle: %w", models.ErrConcurrencyConflict)
	}
	delete(t.likes, userID)
	return nil
}

func (t *memLikeTx) CountLikes(ctx context.Context) (int, error) {
	return len(t.likes), nil
}

func (t *memLikeTx) SetScore(ctx context.Context, likeCount int, score float64) error {
	t.trip.LikeCount = likeCount
	t.trip.TrendingScore = score
	t.scored = true
	return nil
}
