package repository

import (
	"context"
	"fmt"
	"strings"

	"travel-feed-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tripColumns = `
	t.id, t.user_id, u.username, t.name, t.description, t.status,
	t.start_date, t.end_date, t.like_count, t.trending_score, t.created_at`

// tripOrderClauses whitelists the ORDER BY clause per listing order.
// Every clause ends on the primary key so equal sort keys never swap between pages.
var tripOrderClauses = map[models.TripOrder]string{
	models.OrderRecent:   `t.created_at DESC, t.id DESC`,
	models.OrderTrending: `t.trending_score DESC, t.created_at DESC, t.id DESC`,
}

// snapshotTx is the isolation used for multi-statement reads
var snapshotTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepository handles database operations for trips and their places and pictures
type TripRepository struct {
	db *pgxpool.Pool
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *pgxpool.Pool) *TripRepository {
	return &TripRepository{db: db}
}

// buildTripFilter returns the WHERE clause for q. ok is false when the
// filter can match nothing, so the caller can skip the round trip.
func buildTripFilter(q models.TripQuery) (where string, args []any, ok bool) {
	var conds []string

	if q.ExcludeOwnerID != "" {
		// A malformed viewer id cannot own any trip, so nothing is excluded.
		if id, err := uuid.Parse(q.ExcludeOwnerID); err == nil {
			args = append(args, id)
			conds = append(conds, fmt.Sprintf("t.user_id <> $%d", len(args)))
		}
	}

	if q.OwnerID != "" {
		id, err := uuid.Parse(q.OwnerID)
		if err != nil {
			return "", nil, false
		}
		args = append(args, id)
		conds = append(conds, fmt.Sprintf("t.user_id = $%d", len(args)))
	}

	if q.IDs != nil {
		ids := parseIDs(q.IDs)
		if len(ids) == 0 {
			return "", nil, false
		}
		args = append(args, ids)
		conds = append(conds, fmt.Sprintf("t.id = ANY($%d)", len(args)))
	}

	if len(conds) == 0 {
		return "", args, true
	}
	return " WHERE " + strings.Join(conds, " AND "), args, true
}

// List retrieves one page of trips; count and page come from one snapshot
func (r *TripRepository) List(ctx context.Context, q models.TripQuery) ([]*models.Trip, int, error) {
	where, args, ok := buildTripFilter(q)
	if !ok {
		return []*models.Trip{}, 0, nil
	}

	orderBy, found := tripOrderClauses[q.Order]
	if !found {
		orderBy = tripOrderClauses[models.OrderRecent]
	}

	var (
		trips []*models.Trip
		total int
	)
	err := pgx.BeginTxFunc(ctx, r.db, snapshotTx, func(tx pgx.Tx) error {
		countQuery := `SELECT COUNT(*) FROM trips t` + where
		if err := tx.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
			return fmt.Errorf("failed to count trips: %w", err)
		}
		if total == 0 || q.Offset >= total {
			trips = []*models.Trip{}
			return nil
		}

		pageArgs := append(append([]any{}, args...), q.Limit, q.Offset)
		query := fmt.Sprintf(`
			SELECT %s
			FROM trips t
			JOIN users u ON u.id = t.user_id%s
			ORDER BY %s
			LIMIT $%d OFFSET $%d
		`, tripColumns, where, orderBy, len(pageArgs)-1, len(pageArgs))

		rows, err := tx.Query(ctx, query, pageArgs...)
		if err != nil {
			return fmt.Errorf("failed to list trips: %w", err)
		}
		trips, err = scanTrips(rows)
		if err != nil {
			return err
		}
		return attachChildren(ctx, tx, trips)
	})
	if err != nil {
		return nil, 0, classify(err)
	}
	return trips, total, nil
}

// GetByID retrieves a trip by ID with places, pictures and tags attached
func (r *TripRepository) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	tripID, err := parseID(id)
	if err != nil {
		return nil, fmt.Errorf("trip not found: %w", err)
	}

	var trip *models.Trip
	err = pgx.BeginTxFunc(ctx, r.db, snapshotTx, func(tx pgx.Tx) error {
		var err error
		trip, err = getTrip(ctx, tx, tripID, false)
		if err != nil {
			return err
		}
		return attachChildren(ctx, tx, []*models.Trip{trip})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", classify(err))
	}
	return trip, nil
}

// LikedBy reports which of tripIDs the user has liked
func (r *TripRepository) LikedBy(ctx context.Context, userID string, tripIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool)
	uid, err := uuid.Parse(userID)
	if err != nil || len(tripIDs) == 0 {
		return liked, nil
	}

	query := `SELECT trip_id FROM likes WHERE user_id = $1 AND trip_id = ANY($2)`
	rows, err := r.db.Query(ctx, query, uid, parseIDs(tripIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get liked trips: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var tripID string
		if err := rows.Scan(&tripID); err != nil {
			return nil, fmt.Errorf("failed to scan liked trip: %w", err)
		}
		liked[tripID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating liked trips: %w", classify(err))
	}
	return liked, nil
}

// Delete removes a trip owned by ownerID. Places, pictures, likes and tag
// associations go with it through ON DELETE CASCADE in the same transaction.
func (r *TripRepository) Delete(ctx context.Context, id, ownerID string) (*models.Trip, error) {
	tripID, err := parseID(id)
	if err != nil {
		return nil, fmt.Errorf("trip not found: %w", err)
	}
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, models.ErrForbidden
	}

	var trip *models.Trip
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		trip, err = getTrip(ctx, tx, tripID, true)
		if err != nil {
			return err
		}
		if trip.OwnerID != owner.String() {
			return models.ErrForbidden
		}
		if err := attachChildren(ctx, tx, []*models.Trip{trip}); err != nil {
			return err
		}

		result, err := tx.Exec(ctx, `DELETE FROM trips WHERE id = $1`, tripID)
		if err != nil {
			return fmt.Errorf("failed to delete trip: %w", err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return trip, nil
}

// ListIDs returns every trip id, newest first
func (r *TripRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM trips ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list trip ids: %w", classify(err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan trip id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trip ids: %w", classify(err))
	}
	return ids, nil
}

// getTrip reads a single trip row, optionally locking it
func getTrip(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + `
		FROM trips t
		JOIN users u ON u.id = t.user_id
		WHERE t.id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF t`
	}

	trip, err := scanTrip(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("trip not found: %w", err)
	}
	return trip, nil
}

func scanTrip(row pgx.Row) (*models.Trip, error) {
	var trip models.Trip
	err := row.Scan(
		&trip.ID, &trip.OwnerID, &trip.OwnerName, &trip.Name, &trip.Description, &trip.Status,
		&trip.StartDate, &trip.EndDate, &trip.LikeCount, &trip.TrendingScore, &trip.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	trip.Places = []*models.Place{}
	trip.Tags = []string{}
	return &trip, nil
}

func scanTrips(rows pgx.Rows) ([]*models.Trip, error) {
	defer rows.Close()

	trips := []*models.Trip{}
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trips: %w", err)
	}
	return trips, nil
}

// attachChildren loads places, pictures and tags for trips in three queries
func attachChildren(ctx context.Context, q querier, trips []*models.Trip) error {
	if len(trips) == 0 {
		return nil
	}

	byID := make(map[string]*models.Trip, len(trips))
	ids := make([]string, 0, len(trips))
	for _, t := range trips {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}
	tripIDs := parseIDs(ids)

	places := make(map[string]*models.Place)
	rows, err := q.Query(ctx, `
		SELECT id, trip_id, position, name, description, review, visited_date
		FROM places
		WHERE trip_id = ANY($1)
		ORDER BY trip_id, position, id
	`, tripIDs)
	if err != nil {
		return fmt.Errorf("failed to get places: %w", err)
	}
	for rows.Next() {
		var p models.Place
		if err := rows.Scan(&p.ID, &p.TripID, &p.Position, &p.Name, &p.Description, &p.Review, &p.VisitedDate); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan place: %w", err)
		}
		p.Pictures = []*models.Picture{}
		places[p.ID] = &p
		if t, ok := byID[p.TripID]; ok {
			t.Places = append(t.Places, &p)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating places: %w", err)
	}

	if len(places) > 0 {
		rows, err = q.Query(ctx, `
			SELECT pic.id, pic.place_id, pic.position, pic.description, pic.url, pic.storage_id
			FROM pictures pic
			JOIN places pl ON pl.id = pic.place_id
			WHERE pl.trip_id = ANY($1)
			ORDER BY pic.place_id, pic.position, pic.id
		`, tripIDs)
		if err != nil {
			return fmt.Errorf("failed to get pictures: %w", err)
		}
		for rows.Next() {
			var pic models.Picture
			if err := rows.Scan(&pic.ID, &pic.PlaceID, &pic.Position, &pic.Description, &pic.URL, &pic.StorageID); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan picture: %w", err)
			}
			if p, ok := places[pic.PlaceID]; ok {
				p.Pictures = append(p.Pictures, &pic)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating pictures: %w", err)
		}
	}

	rows, err = q.Query(ctx, `
		SELECT trip_id, tag
		FROM trip_tags
		WHERE trip_id = ANY($1)
		ORDER BY trip_id, tag
	`, tripIDs)
	if err != nil {
		return fmt.Errorf("failed to get tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tripID, tag string
		if err := rows.Scan(&tripID, &tag); err != nil {
			return fmt.Errorf("failed to scan tag: %w", err)
		}
		if t, ok := byID[tripID]; ok {
			t.Tags = append(t.Tags, tag)
		}
	}
	return rows.Err()
}
