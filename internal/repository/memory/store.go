// Package memory is an in-process entity store with the same semantics as the
// Postgres repositories. It backs the test suites and `store.driver: memory`.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"travel-feed-backend/internal/models"
	"travel-feed-backend/internal/repository"
	"travel-feed-backend/internal/scoring"
	"travel-feed-backend/internal/tagindex"

	"github.com/google/uuid"
)

// Store holds users, trips, likes and tags in memory
type Store struct {
	mu    sync.RWMutex
	users map[string]*models.User
	trips map[string]*models.Trip
	likes map[string]map[string]time.Time // trip id -> user id -> liked at

	locksMu   sync.Mutex
	tripLocks map[string]*sync.Mutex

	watchMu  sync.Mutex
	watchers map[*tagWatch]struct{}
}

var (
	_ repository.TripStore = (*Store)(nil)
	_ repository.UserStore = userView{}
	_ repository.LikeStore = (*Store)(nil)
	_ repository.TagSource = (*Store)(nil)
	_ repository.TagWatcher = (*Store)(nil)
)

// New creates an empty store
func New() *Store {
	return &Store{
		users:     make(map[string]*models.User),
		trips:     make(map[string]*models.Trip),
		likes:     make(map[string]map[string]time.Time),
		tripLocks: make(map[string]*sync.Mutex),
		watchers:  make(map[*tagWatch]struct{}),
	}
}

// AddUser inserts or replaces a user, assigning an id and timestamp when missing
func (s *Store) AddUser(user *models.User) *models.User {
	u := *user
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
	return &u
}

// AddTrip inserts a fully authored trip. Ids are assigned where missing and
// tags are normalised the way the trip_tags table stores them.
func (s *Store) AddTrip(trip *models.Trip) (*models.Trip, error) {
	t := trip.Clone()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Status == "" {
		t.Status = models.TripStatusPlanned
	}
	for i, p := range t.Places {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.TripID = t.ID
		p.Position = i
		for j, pic := range p.Pictures {
			if pic.ID == "" {
				pic.ID = uuid.New().String()
			}
			pic.PlaceID = p.ID
			pic.Position = j
		}
	}
	t.Tags = tagindex.NormalizeAll(t.Tags)

	s.mu.Lock()
	owner, ok := s.users[t.OwnerID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("owner not found: %w", models.ErrNotFound)
	}
	t.OwnerName = owner.Username
	t.LikeCount = len(s.likes[t.ID])
	t.TrendingScore = scoring.Score(t.LikeCount, t.CreatedAt)
	s.trips[t.ID] = t
	out := t.Clone()
	s.mu.Unlock()

	s.tagsChanged(t.ID)
	return out, nil
}

// List returns one page of trips matching q and the filtered total
func (s *Store) List(ctx context.Context, q models.TripQuery) ([]*models.Trip, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var idSet map[string]struct{}
	if q.IDs != nil {
		idSet = make(map[string]struct{}, len(q.IDs))
		for _, id := range q.IDs {
			idSet[id] = struct{}{}
		}
	}

	s.mu.RLock()
	matched := make([]*models.Trip, 0, len(s.trips))
	for _, t := range s.trips {
		if q.ExcludeOwnerID != "" && t.OwnerID == q.ExcludeOwnerID {
			continue
		}
		if q.OwnerID != "" && t.OwnerID != q.OwnerID {
			continue
		}
		if idSet != nil {
			if _, ok := idSet[t.ID]; !ok {
				continue
			}
		}
		matched = append(matched, t.Clone())
	}
	s.mu.RUnlock()

	sortTrips(matched, q.Order)

	total := len(matched)
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Offset >= total {
		return []*models.Trip{}, total, nil
	}
	end := total
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return matched[q.Offset:end], total, nil
}

// GetByID returns a copy of the trip
func (s *Store) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trips[id]
	if !ok {
		return nil, fmt.Errorf("trip not found: %w", models.ErrNotFound)
	}
	return t.Clone(), nil
}

// LikedBy reports which of tripIDs userID has liked
func (s *Store) LikedBy(ctx context.Context, userID string, tripIDs []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	liked := make(map[string]bool)
	for _, id := range tripIDs {
		if _, ok := s.likes[id][userID]; ok {
			liked[id] = true
		}
	}
	return liked, nil
}

// Delete removes a trip with its places, pictures, likes and tags under one write lock
func (s *Store) Delete(ctx context.Context, id, ownerID string) (*models.Trip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	t, ok := s.trips[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("trip not found: %w", models.ErrNotFound)
	}
	if t.OwnerID != ownerID {
		s.mu.Unlock()
		return nil, models.ErrForbidden
	}
	delete(s.trips, id)
	delete(s.likes, id)
	s.mu.Unlock()

	s.locksMu.Lock()
	delete(s.tripLocks, id)
	s.locksMu.Unlock()

	s.tagsChanged(id)
	return t, nil
}

// ListIDs returns every trip id, newest first
func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	trips := make([]*models.Trip, 0, len(s.trips))
	for _, t := range s.trips {
		trips = append(trips, t)
	}
	s.mu.RUnlock()

	sortTrips(trips, models.OrderRecent)
	ids := make([]string, 0, len(trips))
	for _, t := range trips {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// Exists checks whether a user exists
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

// Users returns the UserStore half of the store; Store.GetByID serves trips
func (s *Store) Users() repository.UserStore {
	return userView{s}
}

// AllTripTags returns trip id -> tags for every tagged trip
func (s *Store) AllTripTags(ctx context.Context) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := make(map[string][]string)
	for id, t := range s.trips {
		if len(t.Tags) > 0 {
			tags[id] = append([]string(nil), t.Tags...)
		}
	}
	return tags, nil
}

// TripTags returns the tags of one trip, sorted
func (s *Store) TripTags(ctx context.Context, tripID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trips[tripID]
	if !ok {
		return []string{}, nil
	}
	return append([]string{}, t.Tags...), nil
}

// LikeMembers returns the user ids that like a trip, sorted
func (s *Store) LikeMembers(tripID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]string, 0, len(s.likes[tripID]))
	for uid := range s.likes[tripID] {
		members = append(members, uid)
	}
	sort.Strings(members)
	return members
}

// userView exposes the user half of the store; Store.GetByID serves trips
type userView struct {
	s *Store
}

func (v userView) GetByID(ctx context.Context, id string) (*models.User, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	u, ok := v.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", models.ErrNotFound)
	}
	c := *u
	return &c, nil
}

func (v userView) Exists(ctx context.Context, id string) (bool, error) {
	return v.s.Exists(ctx, id)
}

func sortTrips(trips []*models.Trip, order models.TripOrder) {
	sort.Slice(trips, func(i, j int) bool {
		a, b := trips[i], trips[j]
		if order == models.OrderTrending && a.TrendingScore != b.TrendingScore {
			return a.TrendingScore > b.TrendingScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
