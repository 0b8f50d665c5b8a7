package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"travel-feed-backend/internal/middleware"
	"travel-feed-backend/internal/models"
	"travel-feed-backend/internal/services"
	"travel-feed-backend/internal/tagindex"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// TripHandler handles trip feed HTTP requests
type TripHandler struct {
	feedService *services.FeedService
	likeService *services.LikeService
	tripService *services.TripService
}

// NewTripHandler creates a new trip handler
func NewTripHandler(feedService *services.FeedService, likeService *services.LikeService, tripService *services.TripService) *TripHandler {
	return &TripHandler{
		feedService: feedService,
		likeService: likeService,
		tripService: tripService,
	}
}

// ListRecent handles GET /api/v1/trips
func (h *TripHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)

	page, err := h.feedService.ListRecent(ctx, viewerID, parsePage(r.URL.Query().Get("page")))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, TripListResponse{
		Trips:      serializeTrips(page.Trips, serializeOptions{viewerID: viewerID, liked: page.Liked}),
		TotalPages: page.TotalPages,
	})
}

// Trending handles GET /api/v1/trips/trending
func (h *TripHandler) Trending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)

	page, err := h.feedService.GetTrending(ctx, viewerID, parsePage(r.URL.Query().Get("page")))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, TripListResponse{
		Trips: serializeTrips(page.Trips, serializeOptions{
			viewerID:  viewerID,
			liked:     page.Liked,
			withScore: true,
		}),
		TotalPages: page.TotalPages,
	})
}

// GetTrip handles GET /api/v1/trips/{trip_id}
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)
	tripID := chi.URLParam(r, "trip_id")

	if err := validateID("trip_id", tripID); err != nil {
		respondError(w, r, err)
		return
	}

	page, err := h.feedService.GetOne(ctx, viewerID, tripID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, serializeTrip(page.Trips[0], serializeOptions{viewerID: viewerID, liked: page.Liked}))
}

// SearchRequest is the body of POST /api/v1/trips/search
type SearchRequest struct {
	Keywords Keywords  `json:"keywords"`
	Page     PageParam `json:"page"`
}

// Keywords accepts either a free-text string or a list of strings
type Keywords []string

// UnmarshalJSON implements json.Unmarshaler
func (k *Keywords) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*k = tagindex.ParseKeywords(text)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return models.NewValidationError("keywords", "must be a string or a list of strings")
	}
	*k = list
	return nil
}

// PageParam accepts a page number given as a JSON number or string
type PageParam int

// UnmarshalJSON implements json.Unmarshaler; unparseable input means page 1
func (p *PageParam) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	n, err := strconv.Atoi(raw)
	if err != nil {
		*p = 1
		return nil
	}
	*p = PageParam(n)
	return nil
}

// Search handles POST /api/v1/trips/search
func (h *TripHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			verr = models.NewValidationError("body", "invalid JSON")
		}
		respondError(w, r, verr)
		return
	}

	page := int(req.Page)
	if qp := r.URL.Query().Get("page"); qp != "" {
		page = parsePage(qp)
	}

	result, err := h.feedService.Search(ctx, viewerID, req.Keywords, page)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, serializeTrips(result.Trips, serializeOptions{viewerID: viewerID, liked: result.Liked}))
}

// ListUserTrips handles GET /api/v1/users/{user_id}/trips
func (h *TripHandler) ListUserTrips(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)
	userID := chi.URLParam(r, "user_id")

	if err := validateID("user_id", userID); err != nil {
		respondError(w, r, err)
		return
	}

	page, err := h.feedService.ListByUser(ctx, viewerID, userID, parsePage(r.URL.Query().Get("page")))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, serializeTrips(page.Trips, serializeOptions{viewerID: viewerID, liked: page.Liked}))
}

// ToggleLike handles POST /api/v1/trips/{trip_id}/like
func (h *TripHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)
	tripID := chi.URLParam(r, "trip_id")

	if err := validateID("trip_id", tripID); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.likeService.Toggle(ctx, viewerID, tripID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, serializeTrip(result.Trip, serializeOptions{
		viewerID:  viewerID,
		liked:     map[string]bool{result.Trip.ID: result.Liked},
		withScore: true,
	}))
}

// DeleteTrip handles DELETE /api/v1/trips/{trip_id}
func (h *TripHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)
	tripID := chi.URLParam(r, "trip_id")

	if err := validateID("trip_id", tripID); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.tripService.DeleteTrip(ctx, viewerID, tripID); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.Warn().
				Err(err).
				Str("user_id", viewerID).
				Str("trip_id", tripID).
				Msg("Failed to delete trip")
		}
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
