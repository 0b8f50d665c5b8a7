package repository

import (
	"context"
	"fmt"

	"travel-feed-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LikeRepository runs like transitions against the likes table
type LikeRepository struct {
	db *pgxpool.Pool
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *pgxpool.Pool) *LikeRepository {
	return &LikeRepository{db: db}
}

// WithTripLock runs fn inside a transaction holding the trip row lock
// (SELECT ... FOR UPDATE). Toggles on the same trip queue behind each other
// while other trips proceed. A cancelled context rolls the whole unit back.
func (r *LikeRepository) WithTripLock(ctx context.Context, tripID string, fn func(tx LikeTx) error) error {
	id, err := parseID(tripID)
	if err != nil {
		return fmt.Errorf("trip not found: %w", err)
	}

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		trip, err := getTrip(ctx, tx, id, true)
		if err != nil {
			return err
		}
		return fn(&pgLikeTx{tx: tx, trip: trip, tripID: id})
	})
	return classify(err)
}

type pgLikeTx struct {
	tx     pgx.Tx
	trip   *models.Trip
	tripID uuid.UUID
}

func (t *pgLikeTx) Trip() *models.Trip {
	return t.trip
}

func (t *pgLikeTx) HasLike(ctx context.Context, userID string) (bool, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}

	query := `SELECT EXISTS(SELECT 1 FROM likes WHERE user_id = $1 AND trip_id = $2)`
	var exists bool
	if err := t.tx.QueryRow(ctx, query, uid, t.tripID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return exists, nil
}

// AddLike inserts the membership; the (user_id, trip_id) primary key turns a
// racing duplicate into a unique violation, classified as a conflict.
func (t *pgLikeTx) AddLike(ctx context.Context, userID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("user not found: %w", models.ErrNotFound)
	}

	query := `INSERT INTO likes (user_id, trip_id, created_at) VALUES ($1, $2, NOW())`
	if _, err := t.tx.Exec(ctx, query, uid, t.tripID); err != nil {
		return fmt.Errorf("failed to add like: %w", classify(err))
	}
	return nil
}

func (t *pgLikeTx) RemoveLike(ctx context.Context, userID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("user not found: %w", models.ErrNotFound)
	}

	query := `DELETE FROM likes WHERE user_id = $1 AND trip_id = $2`
	result, err := t.tx.Exec(ctx, query, uid, t.tripID)
	if err != nil {
		return fmt.Errorf("failed to remove like: %w", classify(err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("like vanished during toggle: %w", models.ErrConcurrencyConflict)
	}
	return nil
}

func (t *pgLikeTx) CountLikes(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM likes WHERE trip_id = $1`
	if err := t.tx.QueryRow(ctx, query, t.tripID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return count, nil
}

func (t *pgLikeTx) SetScore(ctx context.Context, likeCount int, score float64) error {
	query := `UPDATE trips SET like_count = $1, trending_score = $2 WHERE id = $3`
	if _, err := t.tx.Exec(ctx, query, likeCount, score, t.tripID); err != nil {
		return fmt.Errorf("failed to update trending score: %w", err)
	}
	t.trip.LikeCount = likeCount
	t.trip.TrendingScore = score
	return nil
}
