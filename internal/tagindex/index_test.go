package tagindex

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource map[string][]string

func (s staticSource) AllTripTags(ctx context.Context) (map[string][]string, error) {
	return s, nil
}

func (s staticSource) TripTags(ctx context.Context, tripID string) ([]string, error) {
	return NormalizeAll(s[tripID]), nil
}

type failingSource struct{}

func (failingSource) AllTripTags(ctx context.Context) (map[string][]string, error) {
	return nil, errors.New("connection refused")
}

func (failingSource) TripTags(ctx context.Context, tripID string) ([]string, error) {
	return nil, errors.New("connection refused")
}

// watchedIndex checks after every write that a trip the rebuild should not
// touch stays searchable
type watchedIndex struct {
	*MemoryIndex
	t      *testing.T
	steady string
	writes []string
}

func (w *watchedIndex) Put(ctx context.Context, tripID string, tags []string) error {
	w.writes = append(w.writes, "put "+tripID)
	err := w.MemoryIndex.Put(ctx, tripID, tags)
	w.assertSteady(ctx)
	return err
}

func (w *watchedIndex) Remove(ctx context.Context, tripID string) error {
	w.writes = append(w.writes, "remove "+tripID)
	err := w.MemoryIndex.Remove(ctx, tripID)
	w.assertSteady(ctx)
	return err
}

func (w *watchedIndex) assertSteady(ctx context.Context) {
	ids, err := w.TripsMatchingAny(ctx, []string{"steady"})
	require.NoError(w.t, err)
	assert.Equal(w.t, []string{w.steady}, ids)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "beach", Normalize("  Beach "))
	assert.Equal(t, "", Normalize("   "))
	assert.Equal(t, []string{"beach", "sun"}, NormalizeAll([]string{"Sun", "beach", " BEACH", ""}))
	assert.Empty(t, NormalizeAll(nil))
}

func TestParseKeywords(t *testing.T) {
	assert.Equal(t, []string{"beach", "italy", "sun"}, ParseKeywords("Beach, sun  Italy,,"))
	assert.Empty(t, ParseKeywords(" , "))
}

func TestMemoryIndexMatchesAny(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	require.NoError(t, idx.Put(ctx, "t1", []string{"Beach", "sun"}))
	require.NoError(t, idx.Put(ctx, "t2", []string{"mountain"}))
	require.NoError(t, idx.Put(ctx, "t3", []string{"beach", "mountain"}))

	ids, err := idx.TripsMatchingAny(ctx, []string{"BEACH"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t3"}, ids)

	ids, err = idx.TripsMatchingAny(ctx, []string{"sun", "mountain"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids)

	ids, err = idx.TripsMatchingAny(ctx, []string{"desert"})
	require.NoError(t, err)
	assert.Empty(t, ids)

	tags, err := idx.TagsOf(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"beach", "sun"}, tags)
}

func TestMemoryIndexEmptyKeywords(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Put(ctx, "t1", []string{"beach"}))

	for _, kws := range [][]string{nil, {}, {"", "  "}} {
		ids, err := idx.TripsMatchingAny(ctx, kws)
		require.NoError(t, err)
		assert.NotNil(t, ids)
		assert.Empty(t, ids)
	}
}

func TestMemoryIndexPutReplacesAndRemove(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	require.NoError(t, idx.Put(ctx, "t1", []string{"beach"}))
	require.NoError(t, idx.Put(ctx, "t1", []string{"city"}))

	ids, err := idx.TripsMatchingAny(ctx, []string{"beach"})
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = idx.TripsMatchingAny(ctx, []string{"city"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, ids)

	require.NoError(t, idx.Remove(ctx, "t1"))
	ids, err = idx.TripsMatchingAny(ctx, []string{"city"})
	require.NoError(t, err)
	assert.Empty(t, ids)

	tags, err := idx.TagsOf(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, tags)

	// removing an unknown trip is a no-op
	assert.NoError(t, idx.Remove(ctx, "missing"))
}

func TestRebuild(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Put(ctx, "stale", []string{"beach"}))

	src := staticSource{
		"t1": {"beach"},
		"t2": {"city", "food"},
	}
	require.NoError(t, Rebuild(ctx, idx, src))

	ids, err := idx.TripsMatchingAny(ctx, []string{"beach", "food"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, ids)

	trips, err := idx.Trips(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, trips)
}

func TestRebuildAppliesOnlyDifferences(t *testing.T) {
	ctx := context.Background()
	idx := &watchedIndex{MemoryIndex: NewMemoryIndex(), t: t, steady: "t0"}
	require.NoError(t, idx.MemoryIndex.Put(ctx, "t0", []string{"steady"}))
	require.NoError(t, idx.MemoryIndex.Put(ctx, "t1", []string{"beach"}))
	require.NoError(t, idx.MemoryIndex.Put(ctx, "gone", []string{"city"}))

	src := staticSource{
		"t0": {"Steady"},
		"t1": {"beach", "sun"},
		"t2": {"food"},
	}
	require.NoError(t, Rebuild(ctx, idx, src))

	assert.ElementsMatch(t, []string{"put t1", "put t2", "remove gone"}, idx.writes)

	tags, err := idx.TagsOf(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"beach", "sun"}, tags)

	ids, err := idx.TripsMatchingAny(ctx, []string{"city"})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Put(ctx, "t1", []string{"old"}))

	require.NoError(t, Refresh(ctx, idx, staticSource{"t1": {"New"}}, "t1"))
	tags, err := idx.TagsOf(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, tags)

	require.NoError(t, Refresh(ctx, idx, staticSource{}, "t1"))
	trips, err := idx.Trips(ctx)
	require.NoError(t, err)
	assert.Empty(t, trips)

	assert.Error(t, Refresh(ctx, idx, failingSource{}, "t1"))
}

func TestRebuildSourceError(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Put(ctx, "t1", []string{"beach"}))

	err := Rebuild(ctx, idx, failingSource{})
	require.Error(t, err)

	// a failed load leaves the previous contents in place
	ids, err := idx.TripsMatchingAny(ctx, []string{"beach"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, ids)
}
