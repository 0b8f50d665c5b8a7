package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"travel-feed-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", fmt.Errorf("trip not found: %w", pgx.ErrNoRows), models.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: pgUniqueViolation}, models.ErrConcurrencyConflict},
		{"serialization failure", &pgconn.PgError{Code: pgSerializationFailure}, models.ErrConcurrencyConflict},
		{"deadlock", &pgconn.PgError{Code: pgDeadlockDetected}, models.ErrConcurrencyConflict},
		{"foreign key", &pgconn.PgError{Code: pgForeignKeyViolation}, models.ErrNotFound},
		{"lock timeout", &pgconn.PgError{Code: pgLockNotAvailable}, models.ErrStoreUnavailable},
		{"statement timeout", &pgconn.PgError{Code: pgQueryCanceled}, models.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
			// driver detail stays reachable
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(context.Canceled), context.Canceled)

	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))
	assert.Equal(t, "Internal", models.ErrorKind(classify(&pgconn.PgError{Code: "42P01"})))
}

func TestBuildTripFilter(t *testing.T) {
	viewer := uuid.New()
	owner := uuid.New()
	a, b := uuid.New(), uuid.New()

	where, args, ok := buildTripFilter(models.TripQuery{})
	assert.True(t, ok)
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args, ok = buildTripFilter(models.TripQuery{ExcludeOwnerID: viewer.String()})
	assert.True(t, ok)
	assert.Equal(t, " WHERE t.user_id <> $1", where)
	assert.Equal(t, []any{viewer}, args)

	where, args, ok = buildTripFilter(models.TripQuery{
		ExcludeOwnerID: viewer.String(),
		OwnerID:        owner.String(),
		IDs:            []string{a.String(), "junk", b.String()},
	})
	assert.True(t, ok)
	assert.Equal(t, " WHERE t.user_id <> $1 AND t.user_id = $2 AND t.id = ANY($3)", where)
	assert.Equal(t, []any{viewer, owner, []uuid.UUID{a, b}}, args)

	_, _, ok = buildTripFilter(models.TripQuery{IDs: []string{}})
	assert.False(t, ok)

	_, _, ok = buildTripFilter(models.TripQuery{IDs: []string{"junk"}})
	assert.False(t, ok)

	_, _, ok = buildTripFilter(models.TripQuery{OwnerID: "junk"})
	assert.False(t, ok)

	// a malformed viewer id excludes nothing
	where, _, ok = buildTripFilter(models.TripQuery{ExcludeOwnerID: "junk"})
	assert.True(t, ok)
	assert.Empty(t, where)
}

func TestParseID(t *testing.T) {
	_, err := parseID("nope")
	assert.ErrorIs(t, err, models.ErrNotFound)

	id := uuid.New()
	got, err := parseID(id.String())
	assert.NoError(t, err)
	assert.Equal(t, id, got)
}
