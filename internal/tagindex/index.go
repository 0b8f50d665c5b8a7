// Package tagindex maps keyword tags to the trips carrying them.
//
// The index is a derived view of the trip_tags table: it can be dropped and
// rebuilt at any time and is never consulted as the authority for a trip's tags.
package tagindex

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"travel-feed-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// Index answers tag membership queries
type Index interface {
	// TagsOf returns the tags of a trip, sorted
	TagsOf(ctx context.Context, tripID string) ([]string, error)
	// TripsMatchingAny returns the trips carrying at least one of keywords.
	// Empty keywords match nothing.
	TripsMatchingAny(ctx context.Context, keywords []string) ([]string, error)
	// Put replaces the tag set of a trip
	Put(ctx context.Context, tripID string, tags []string) error
	// Remove drops a trip from the index
	Remove(ctx context.Context, tripID string) error
	// Trips returns every trip the index holds tags for, sorted
	Trips(ctx context.Context) ([]string, error)
}

// Normalize lower-cases and trims a tag
func Normalize(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// NormalizeAll normalises tags, dropping blanks and duplicates. The result is sorted.
func NormalizeAll(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = Normalize(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// ParseKeywords splits free-text search input on whitespace and commas
func ParseKeywords(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	return NormalizeAll(fields)
}

// Rebuild brings idx in line with src trip by trip. The index is never
// emptied, so readers sharing it see each trip's old or new tags throughout.
// Every trip that differs is re-read from src before it is written, which
// keeps a change committed during the rebuild from being reverted.
func Rebuild(ctx context.Context, idx Index, src repository.TagSource) error {
	indexed, err := idx.Trips(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexed trips: %w", err)
	}
	all, err := src.AllTripTags(ctx)
	if err != nil {
		return fmt.Errorf("failed to load trip tags: %w", err)
	}

	var updated, removed int
	for tripID, tags := range all {
		current, err := idx.TagsOf(ctx, tripID)
		if err != nil {
			return fmt.Errorf("failed to read indexed tags of trip %s: %w", tripID, err)
		}
		if slices.Equal(current, NormalizeAll(tags)) {
			continue
		}
		if err := Refresh(ctx, idx, src, tripID); err != nil {
			return err
		}
		updated++
	}

	for _, tripID := range indexed {
		if _, ok := all[tripID]; ok {
			continue
		}
		if err := Refresh(ctx, idx, src, tripID); err != nil {
			return err
		}
		removed++
	}

	log.Info().
		Int("trips", len(all)).
		Int("updated", updated).
		Int("removed", removed).
		Msg("Tag index rebuilt")
	return nil
}

// Refresh copies one trip's current tags from src into idx
func Refresh(ctx context.Context, idx Index, src repository.TagSource, tripID string) error {
	tags, err := src.TripTags(ctx, tripID)
	if err != nil {
		return fmt.Errorf("failed to load tags of trip %s: %w", tripID, err)
	}
	if len(tags) == 0 {
		err = idx.Remove(ctx, tripID)
	} else {
		err = idx.Put(ctx, tripID, tags)
	}
	if err != nil {
		return fmt.Errorf("failed to index trip %s: %w", tripID, err)
	}
	return nil
}
