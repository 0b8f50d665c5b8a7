package services

import (
	"context"
	"fmt"
	"math"

	"travel-feed-backend/internal/models"
	"travel-feed-backend/internal/repository"
	"travel-feed-backend/internal/tagindex"

	"github.com/rs/zerolog/log"
)

// Page sizes are fixed per listing
const (
	ListPageSize      = 6
	TrendingPageSize  = 6
	SearchPageSize    = 10
	UserTripsPageSize = 10
)

// FeedService handles trip listing, search and trending queries
type FeedService struct {
	trips repository.TripStore
	users repository.UserStore
	tags  tagindex.Index
}

// NewFeedService creates a new feed service
func NewFeedService(trips repository.TripStore, users repository.UserStore, tags tagindex.Index) *FeedService {
	return &FeedService{
		trips: trips,
		users: users,
		tags:  tags,
	}
}

// NormalizePage coerces a requested page number to at least 1
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ListRecent returns trips not owned by viewerID, newest first.
// An empty viewerID is an anonymous viewer and sees every trip.
func (s *FeedService) ListRecent(ctx context.Context, viewerID string, page int) (*models.TripPage, error) {
	return s.list(ctx, viewerID, models.TripQuery{
		ExcludeOwnerID: viewerID,
		Order:          models.OrderRecent,
	}, page, ListPageSize)
}

// GetTrending returns trips not owned by viewerID by cached score, ties newest first
func (s *FeedService) GetTrending(ctx context.Context, viewerID string, page int) (*models.TripPage, error) {
	return s.list(ctx, viewerID, models.TripQuery{
		ExcludeOwnerID: viewerID,
		Order:          models.OrderTrending,
	}, page, TrendingPageSize)
}

// Search returns trips tagged with any of keywords, excluding viewerID's own.
// No keywords means an empty result, not an unfiltered scan.
func (s *FeedService) Search(ctx context.Context, viewerID string, keywords []string, page int) (*models.TripPage, error) {
	page = NormalizePage(page)

	keywords = tagindex.NormalizeAll(keywords)
	if len(keywords) == 0 {
		return &models.TripPage{Trips: []*models.Trip{}, Page: page}, nil
	}

	ids, err := s.tags.TripsMatchingAny(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag index: %w", err)
	}

	log.Debug().
		Strs("keywords", keywords).
		Int("candidates", len(ids)).
		Msg("Tag search")

	return s.list(ctx, viewerID, models.TripQuery{
		ExcludeOwnerID: viewerID,
		IDs:            ids,
		Order:          models.OrderRecent,
	}, page, SearchPageSize)
}

// ListByUser returns trips owned by userID, newest first
func (s *FeedService) ListByUser(ctx context.Context, viewerID, userID string, page int) (*models.TripPage, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("user not found: %w", models.ErrNotFound)
	}

	return s.list(ctx, viewerID, models.TripQuery{
		OwnerID: userID,
		Order:   models.OrderRecent,
	}, page, UserTripsPageSize)
}

// GetOne returns a single trip with its places and pictures
func (s *FeedService) GetOne(ctx context.Context, viewerID, tripID string) (*models.TripPage, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	result := &models.TripPage{Trips: []*models.Trip{trip}, Page: 1, TotalPages: 1}
	if err := s.attachViewerState(ctx, viewerID, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *FeedService) list(ctx context.Context, viewerID string, q models.TripQuery, page, pageSize int) (*models.TripPage, error) {
	page = NormalizePage(page)
	q.Limit = pageSize
	q.Offset = pageOffset(page, pageSize)

	trips, total, err := s.trips.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s trips: %w", q.Order, err)
	}

	result := &models.TripPage{
		Trips:      trips,
		Page:       page,
		TotalPages: models.TotalPages(total, pageSize),
	}
	if err := s.attachViewerState(ctx, viewerID, result); err != nil {
		return nil, err
	}
	return result, nil
}

// pageOffset returns the row offset of page. A page too far out to address
// with an int lands past the end of any result instead of wrapping negative.
func pageOffset(page, pageSize int) int {
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

func (s *FeedService) attachViewerState(ctx context.Context, viewerID string, page *models.TripPage) error {
	if viewerID == "" || len(page.Trips) == 0 {
		return nil
	}

	ids := make([]string, 0, len(page.Trips))
	for _, t := range page.Trips {
		ids = append(ids, t.ID)
	}
	liked, err := s.trips.LikedBy(ctx, viewerID, ids)
	if err != nil {
		return fmt.Errorf("failed to load viewer likes: %w", err)
	}
	page.Liked = liked
	return nil
}
