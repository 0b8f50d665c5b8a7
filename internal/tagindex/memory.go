package tagindex

import (
	"context"
	"sort"
	"sync"
)

// MemoryIndex keeps both directions of the tag relation in maps
type MemoryIndex struct {
	mu     sync.RWMutex
	byTag  map[string]map[string]struct{}
	byTrip map[string]map[string]struct{}
}

// NewMemoryIndex creates an empty in-process index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		byTag:  make(map[string]map[string]struct{}),
		byTrip: make(map[string]map[string]struct{}),
	}
}

func (m *MemoryIndex) TagsOf(ctx context.Context, tripID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.byTrip[tripID]), nil
}

func (m *MemoryIndex) TripsMatchingAny(ctx context.Context, keywords []string) ([]string, error) {
	keywords = NormalizeAll(keywords)
	if len(keywords) == 0 {
		return []string{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	union := make(map[string]struct{})
	for _, kw := range keywords {
		for tripID := range m.byTag[kw] {
			union[tripID] = struct{}{}
		}
	}
	return sortedKeys(union), nil
}

func (m *MemoryIndex) Put(ctx context.Context, tripID string, tags []string) error {
	tags = NormalizeAll(tags)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(tripID)
	if len(tags) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
		trips, ok := m.byTag[tag]
		if !ok {
			trips = make(map[string]struct{})
			m.byTag[tag] = trips
		}
		trips[tripID] = struct{}{}
	}
	m.byTrip[tripID] = set
	return nil
}

func (m *MemoryIndex) Remove(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(tripID)
	return nil
}

func (m *MemoryIndex) Trips(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.byTrip))
	for id := range m.byTrip {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// removeLocked drops tripID; a tag left without trips is deleted outright
func (m *MemoryIndex) removeLocked(tripID string) {
	for tag := range m.byTrip[tripID] {
		trips := m.byTag[tag]
		delete(trips, tripID)
		if len(trips) == 0 {
			delete(m.byTag, tag)
		}
	}
	delete(m.byTrip, tripID)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
