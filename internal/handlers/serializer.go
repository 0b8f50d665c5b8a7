package handlers

import (
	"time"

	"travel-feed-backend/internal/models"
)

const dateLayout = "2006-01-02"

// TripResponse is the wire shape of a trip
type TripResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Status        string          `json:"status"`
	StartDate     *string         `json:"start_date"`
	EndDate       *string         `json:"end_date"`
	Owner         OwnerResponse   `json:"owner"`
	Places        []PlaceResponse `json:"places"`
	Tags          []string        `json:"tags"`
	LikeCount     int             `json:"like_count"`
	Liked         *bool           `json:"liked,omitempty"`
	TrendingScore *float64        `json:"trending_score,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OwnerResponse is the owner summary embedded in a trip
type OwnerResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// PlaceResponse is the wire shape of a place
type PlaceResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Review      string            `json:"review"`
	VisitedDate *string           `json:"visited_date"`
	Pictures    []PictureResponse `json:"pictures"`
}

// PictureResponse is the wire shape of a picture
type PictureResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublicID    string `json:"public_id"`
}

// TripListResponse is returned by the paginated listings
type TripListResponse struct {
	Trips      []TripResponse `json:"trips"`
	TotalPages int            `json:"total_pages"`
}

// serializeOptions controls the viewer- and listing-specific fields
type serializeOptions struct {
	viewerID  string
	liked     map[string]bool
	withScore bool
}

func serializeTrips(trips []*models.Trip, opts serializeOptions) []TripResponse {
	out := make([]TripResponse, 0, len(trips))
	for _, t := range trips {
		out = append(out, serializeTrip(t, opts))
	}
	return out
}

func serializeTrip(t *models.Trip, opts serializeOptions) TripResponse {
	resp := TripResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Status:      t.Status,
		StartDate:   formatDate(t.StartDate),
		EndDate:     formatDate(t.EndDate),
		Owner: OwnerResponse{
			ID:       t.OwnerID,
			Username: t.OwnerName,
		},
		Places:    make([]PlaceResponse, 0, len(t.Places)),
		Tags:      t.Tags,
		LikeCount: t.LikeCount,
		CreatedAt: t.CreatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}

	for _, p := range t.Places {
		place := PlaceResponse{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Review:      p.Review,
			VisitedDate: formatDate(p.VisitedDate),
			Pictures:    make([]PictureResponse, 0, len(p.Pictures)),
		}
		for _, pic := range p.Pictures {
			place.Pictures = append(place.Pictures, PictureResponse{
				ID:          pic.ID,
				Description: pic.Description,
				URL:         pic.URL,
				PublicID:    pic.StorageID,
			})
		}
		resp.Places = append(resp.Places, place)
	}

	if opts.viewerID != "" {
		liked := opts.liked[t.ID]
		resp.Liked = &liked
	}
	if opts.withScore {
		score := t.TrendingScore
		resp.TrendingScore = &score
	}
	return resp
}

func formatDate(d *time.Time) *string {
	if d == nil {
		return nil
	}
	s := d.Format(dateLayout)
	return &s
}
