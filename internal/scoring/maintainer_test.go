package scoring_test

import (
	"context"
	"testing"
	"time"

	"travel-feed-backend/internal/models"
	"travel-feed-backend/internal/repository/memory"
	"travel-feed-backend/internal/scoring"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecompute(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	owner := store.AddUser(&models.User{Username: "owner"})
	fan := store.AddUser(&models.User{Username: "fan"})
	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	trip, err := store.AddTrip(&models.Trip{OwnerID: owner.ID, Name: "Alps", CreatedAt: created})
	require.NoError(t, err)
	assert.Equal(t, scoring.Score(0, created), trip.TrendingScore)

	require.NoError(t, store.SeedLike(trip.ID, fan.ID))

	m := scoring.NewMaintainer(store)
	got, err := m.Recompute(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCount)
	assert.Equal(t, scoring.Score(1, created), got.TrendingScore)

	stored, err := store.GetByID(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, got.TrendingScore, stored.TrendingScore)

	// idempotent
	again, err := m.Recompute(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, got.TrendingScore, again.TrendingScore)
}

func TestRecomputeUnknownTrip(t *testing.T) {
	m := scoring.NewMaintainer(memory.New())

	_, err := m.Recompute(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, models.ErrNotFound)
}
