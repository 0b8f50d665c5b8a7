package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// tagChangesChannel is the NOTIFY channel of the trip_tags_changed trigger
const tagChangesChannel = "trip_tags"

// TagRepository reads the trip_tags table, the authority for tag membership
type TagRepository struct {
	db *pgxpool.Pool
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *pgxpool.Pool) *TagRepository {
	return &TagRepository{db: db}
}

// AllTripTags returns trip id -> tags for every tagged trip
func (r *TagRepository) AllTripTags(ctx context.Context) (map[string][]string, error) {
	rows, err := r.db.Query(ctx, `SELECT trip_id, tag FROM trip_tags ORDER BY trip_id, tag`)
	if err != nil {
		return nil, fmt.Errorf("failed to get trip tags: %w", classify(err))
	}
	defer rows.Close()

	tags := make(map[string][]string)
	for rows.Next() {
		var tripID, tag string
		if err := rows.Scan(&tripID, &tag); err != nil {
			return nil, fmt.Errorf("failed to scan trip tag: %w", err)
		}
		tags[tripID] = append(tags[tripID], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trip tags: %w", classify(err))
	}
	return tags, nil
}

// TripTags returns the tags of one trip, sorted
func (r *TagRepository) TripTags(ctx context.Context, tripID string) ([]string, error) {
	id, err := parseID(tripID)
	if err != nil {
		return []string{}, nil
	}

	rows, err := r.db.Query(ctx, `SELECT tag FROM trip_tags WHERE trip_id = $1 ORDER BY tag`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get trip tags: %w", classify(err))
	}
	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan trip tags: %w", classify(err))
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// WatchTags listens on the trip_tags channel, fed by the trip_tags_changed
// trigger. The listening connection is taken out of the pool for the
// lifetime of the watch.
func (r *TagRepository) WatchTags(ctx context.Context, subscribed func(), onChange func(tripID string)) error {
	pooled, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listener connection: %w", classify(err))
	}
	conn := pooled.Hijack()
	defer func() {
		if err := conn.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to close tag listener connection")
		}
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+tagChangesChannel); err != nil {
		return fmt.Errorf("failed to listen for tag changes: %w", classify(err))
	}
	subscribed()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to wait for tag changes: %w", classify(err))
		}
		onChange(n.Payload)
	}
}
