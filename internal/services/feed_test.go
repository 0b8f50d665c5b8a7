package services

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"travel-feed-backend/internal/models"
	"travel-feed-backend/internal/repository/memory"
	"travel-feed-backend/internal/tagindex"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type feedFixture struct {
	store *memory.Store
	tags  *tagindex.MemoryIndex
	feed  *FeedService
}

func newFeedFixture(t *testing.T) *feedFixture {
	t.Helper()
	store := memory.New()
	tags := tagindex.NewMemoryIndex()
	return &feedFixture{
		store: store,
		tags:  tags,
		feed:  NewFeedService(store, store.Users(), tags),
	}
}

func (f *feedFixture) user(name string) *models.User {
	return f.store.AddUser(&models.User{Username: name})
}

func (f *feedFixture) trip(t *testing.T, ownerID string, createdAt time.Time, tags ...string) *models.Trip {
	t.Helper()
	trip, err := f.store.AddTrip(&models.Trip{
		OwnerID:   ownerID,
		Name:      fmt.Sprintf("trip-%d", createdAt.Unix()),
		CreatedAt: createdAt,
		Tags:      tags,
	})
	require.NoError(t, err)
	require.NoError(t, f.tags.Put(context.Background(), trip.ID, trip.Tags))
	return trip
}

func tripIDs(trips []*models.Trip) []string {
	ids := make([]string, 0, len(trips))
	for _, t := range trips {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestListRecentExampleScenario(t *testing.T) {
	ctx := context.Background()
	f := newFeedFixture(t)
	u1 := f.user("u1")
	u2 := f.user("u2")

	f.trip(t, u1.ID, epoch.Add(1*time.Second))
	b := f.trip(t, u2.ID, epoch.Add(2*time.Second))

	page, err := f.feed.ListRecent(ctx, u1.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, tripIDs(page.Trips))
	assert.Equal(t, 1, page.TotalPages)
}

func TestListRecentPaginationCoversEverything(t *testing.T) {
	ctx := context.Background()
	f := newFeedFixture(t)
	viewer := f.user("viewer")
	other := f.user("other")

	// own trips are interleaved and must not count towards pages
	var want []string
	for i := 0; i < 17; i++ {
		created := epoch.Add(time.Duration(i) * time.Minute)
		if i%4 == 0 {
			f.trip(t, viewer.ID, created)
			continue
		}
		want = append([]string{f.trip(t, other.ID, created).ID}, want...)
	}

	first, err := f.feed.ListRecent(ctx, viewer.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TotalPages(len(want), ListPageSize), first.TotalPages)

	var got []string
	for p := 1; p <= first.TotalPages; p++ {
		page, err := f.feed.ListRecent(ctx, viewer.ID, p)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Trips), ListPageSize)
		for _, trip := range page.Trips {
			assert.NotEqual(t, viewer.ID, trip.OwnerID)
		}
		got = append(got, tripIDs(page.Trips)...)
	}
	assert.Equal(t, want, got)

	past, err := f.feed.ListRecent(ctx, viewer.ID, first.TotalPages+1)
	require.NoError(t, err)
	assert.Empty(t, past.Trips)
	assert.Equal(t, first.TotalPages, past.TotalPages)
}

func TestListRecentCoercesPage(t *testing.T) {
	ctx := context.Background()
	f := newFeedFixture(t)
	owner := f.user("owner")
	trip := f.trip(t, owner.ID, epoch)

	for _, p := range []int{0, -5} {
		page, err := f.feed.ListRecent(ctx, "", p)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, []string{trip.ID}, tripIDs(page.Trips))
	}
}

func TestListingsPastInt64Offset(t *testing.T) {
	ctx := context.Background()
	f := newFeedFixture(t)
	owner := f.user("owner")
	user := f.user("user")
	f.trip(t, owner.ID, epoch, "beach")
	f.trip(t, user.ID, epoch.Add(time.Second), "beach")

	for _, p := range []int{math.MaxInt, math.MaxInt/ListPageSize + 2, math.MaxInt / SearchPageSize} {
		recent, err := f.feed.ListRecent(ctx, "", p)
		require.NoError(t, err)
		assert.Empty(t, recent.Trips)
		assert.Equal(t, 1, recent.TotalPages)

		trending, err := f.feed.GetTrending(ctx, "", p)
		require.NoError(t, err)
		assert.Empty(t, trending.Trips)

		found, err := f.feed.Search(ctx, "", []string{"beach"}, p)
		require.NoError(t, err)
		assert.Empty(t, found.Trips)
		assert.Equal(t, 1, found.TotalPages)

		byUser, err := f.feed.ListByUser(ctx, "", user.ID, p)
		require.NoError(t, err)
		assert.Empty(t, byUser.Trips)
	}
}

func TestPageOffset(t *testing.T) {
	assert.Equal(t, 0, pageOffset(1, ListPageSize))
	assert.Equal(t, 12, pageOffset(3, ListPageSize))
	assert.Equal(t, math.MaxInt, pageOffset(math.MaxInt, ListPageSize))
	assert.Equal(t, math.MaxInt, pageOffset(math.MaxInt/ListPageSize+2, ListPageSize))
	assert.GreaterOrEqual(t, pageOffset(math.MaxInt/ListPageSize+1, ListPageSize), 0)
}

func TestListRecentAnonymousSeesAll(t *testing.T) {
	ctx := context.Background()
	f := newFeedFixture(t)
	a := f.user("a")
	b := f.user("b")
	f.trip(t, a.ID, epoch)
	f.trip(t, b.ID, epoch.Add(time.Second))

	page, err := f.feed.ListRecent(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, page.Trips, 2)
	assert.Nil(t, page.Liked)
}

func TestGetTrendingOrder(t *testing.T) {
	ctx := context.Background()
	f := newFeedFixture(t)
	viewer := f.user("viewer")
	owner := f.user("owner")

	quiet := f.trip(t, owner.ID, epoch.Add(time.Hour))
	popular := f.trip(t, owner.ID, epoch)
	for i := 0; i < 30; i++ {
		require.NoError(t, f.store.SeedLike(popular.ID, f.user("fan").ID))
	}
	f.trip(t, viewer.ID, epoch.Add(2*time.Hour))

	page, err := f.feed.GetTrending(ctx, viewer.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{popular.ID, quiet.ID}, tripIDs(page.Trips))
	assert.Equal(t, 1, page.TotalPages)

	for i := 1; i < len(page.Trips); i++ {
		assert.GreaterOrEqual(t, page.Trips[i-1].TrendingScore, page.Trips[i].TrendingScore)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	f := newFeedFixture(t)
	viewer := f.user("viewer")
	owner := f.user("owner")

	beach := f.trip(t, owner.ID, epoch, "Beach", "sun")
	mountain := f.trip(t, owner.ID, epoch.Add(time.Hour), "mountain")
	f.trip(t, owner.ID, epoch.Add(2*time.Hour), "city")
	f.trip(t, viewer.ID, epoch.Add(3*time.Hour), "beach")

	page, err := f.feed.Search(ctx, viewer.ID, []string{"BEACH", "mountain"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{mountain.ID, beach.ID}, tripIDs(page.Trips))
	assert.Equal(t, 1, page.TotalPages)

	for _, trip := range page.Trips {
		assert.NotEqual(t, viewer.ID, trip.OwnerID)
	}

	page, err = f.feed.Search(ctx, viewer.ID, []string{"desert"}, 1)
	require.NoError(t, err)
	assert.Empty(t, page.Trips)
	assert.Equal(t, 0, page.TotalPages)
}

func TestSearchEmptyKeywords(t *testing.T) {
	ctx := context.Background()
	f := newFeedFixture(t)
	owner := f.user("owner")
	f.trip(t, owner.ID, epoch, "beach")

	for _, kws := range [][]string{nil, {}, {" ", ""}} {
		page, err := f.feed.Search(ctx, "", kws, 1)
		require.NoError(t, err)
		assert.Empty(t, page.Trips)
		assert.Equal(t, 0, page.TotalPages)
	}
}

func TestSearchFindsTripsAuthoredLater(t *testing.T) {
	f := newFeedFixture(t)
	owner := f.user("owner")
	first := f.trip(t, owner.ID, epoch, "beach")
	require.NoError(t, tagindex.Rebuild(context.Background(), f.tags, f.store))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tagindex.Follow(ctx, f.tags, f.store, f.store, time.Millisecond)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// authored behind the service's back, as the authoring side does
	later, err := f.store.AddTrip(&models.Trip{OwnerID: owner.ID, Name: "later", CreatedAt: epoch.Add(time.Hour), Tags: []string{"Beach"}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		page, err := f.feed.Search(context.Background(), "", []string{"beach"}, 1)
		return err == nil && assert.ObjectsAreEqual([]string{later.ID, first.ID}, tripIDs(page.Trips))
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSearchPaginates(t *testing.T) {
	ctx := context.Background()
	f := newFeedFixture(t)
	owner := f.user("owner")
	for i := 0; i < SearchPageSize+3; i++ {
		f.trip(t, owner.ID, epoch.Add(time.Duration(i)*time.Second), "beach")
	}

	first, err := f.feed.Search(ctx, "", []string{"beach"}, 1)
	require.NoError(t, err)
	second, err := f.feed.Search(ctx, "", []string{"beach"}, 2)
	require.NoError(t, err)

	assert.Len(t, first.Trips, SearchPageSize)
	assert.Len(t, second.Trips, 3)
	assert.Equal(t, 2, first.TotalPages)
	assert.NotContains(t, tripIDs(first.Trips), second.Trips[0].ID)
}

func TestListByUser(t *testing.T) {
	ctx := context.Background()
	f := newFeedFixture(t)
	viewer := f.user("viewer")
	owner := f.user("owner")

	var want []string
	for i := 0; i < UserTripsPageSize+2; i++ {
		want = append([]string{f.trip(t, owner.ID, epoch.Add(time.Duration(i)*time.Minute)).ID}, want...)
	}
	f.trip(t, viewer.ID, epoch)

	first, err := f.feed.ListByUser(ctx, viewer.ID, owner.ID, 1)
	require.NoError(t, err)
	second, err := f.feed.ListByUser(ctx, viewer.ID, owner.ID, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, first.TotalPages)
	assert.Equal(t, want, append(tripIDs(first.Trips), tripIDs(second.Trips)...))

	// owners can list their own trips
	own, err := f.feed.ListByUser(ctx, viewer.ID, viewer.ID, 1)
	require.NoError(t, err)
	assert.Len(t, own.Trips, 1)

	_, err = f.feed.ListByUser(ctx, viewer.ID, uuid.NewString(), 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetOne(t *testing.T) {
	ctx := context.Background()
	f := newFeedFixture(t)
	viewer := f.user("viewer")
	owner := f.user("owner")
	trip := f.trip(t, owner.ID, epoch, "beach")
	require.NoError(t, f.store.SeedLike(trip.ID, viewer.ID))

	page, err := f.feed.GetOne(ctx, viewer.ID, trip.ID)
	require.NoError(t, err)
	require.Len(t, page.Trips, 1)
	assert.Equal(t, trip.ID, page.Trips[0].ID)
	assert.Equal(t, 1, page.Trips[0].LikeCount)
	assert.True(t, page.Liked[trip.ID])

	_, err = f.feed.GetOne(ctx, viewer.ID, uuid.NewString())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListMarksViewerLikes(t *testing.T) {
	ctx := context.Background()
	f := newFeedFixture(t)
	viewer := f.user("viewer")
	owner := f.user("owner")
	liked := f.trip(t, owner.ID, epoch)
	notLiked := f.trip(t, owner.ID, epoch.Add(time.Second))
	require.NoError(t, f.store.SeedLike(liked.ID, viewer.ID))

	page, err := f.feed.ListRecent(ctx, viewer.ID, 1)
	require.NoError(t, err)
	assert.True(t, page.Liked[liked.ID])
	assert.False(t, page.Liked[notLiked.ID])
}
