package models

import "time"

// Trip statuses used by the authoring side; the feed does not filter on them.
const (
	TripStatusPlanned   = "planned"
	TripStatusOngoing   = "ongoing"
	TripStatusCompleted = "completed"
)

// User represents a user in the system
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	PushToken *string   `json:"push_token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Trip represents a user-authored travel record.
// LikeCount and TrendingScore are derived from the likes table and are
// rewritten together on every like toggle.
type Trip struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	OwnerName     string     `json:"owner_name"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Places        []*Place   `json:"places"`
	Tags          []string   `json:"tags"`
	LikeCount     int        `json:"like_count"`
	TrendingScore float64    `json:"trending_score"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Place represents a location visited within a trip
type Place struct {
	ID          string     `json:"id"`
	TripID      string     `json:"trip_id"`
	Position    int        `json:"position"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Review      string     `json:"review"`
	VisitedDate *time.Time `json:"visited_date,omitempty"`
	Pictures    []*Picture `json:"pictures"`
}

// Picture represents an image attached to a place
type Picture struct {
	ID          string `json:"id"`
	PlaceID     string `json:"place_id"`
	Position    int    `json:"position"`
	Description string `json:"description"`
	URL         string `json:"url"`
	StorageID   string `json:"storage_id"`
}

// Like is a (user, trip) membership fact
type Like struct {
	UserID    string    `json:"user_id"`
	TripID    string    `json:"trip_id"`
	CreatedAt time.Time `json:"created_at"`
}

// StorageIDs returns the external storage identifiers of every picture in the trip.
func (t *Trip) StorageIDs() []string {
	var ids []string
	for _, place := range t.Places {
		for _, pic := range place.Pictures {
			if pic.StorageID != "" {
				ids = append(ids, pic.StorageID)
			}
		}
	}
	return ids
}

// Clone returns a deep copy of the trip
func (t *Trip) Clone() *Trip {
	c := *t
	c.Tags = append([]string(nil), t.Tags...)
	c.Places = make([]*Place, 0, len(t.Places))
	for _, p := range t.Places {
		pc := *p
		pc.Pictures = make([]*Picture, 0, len(p.Pictures))
		for _, pic := range p.Pictures {
			picCopy := *pic
			pc.Pictures = append(pc.Pictures, &picCopy)
		}
		c.Places = append(c.Places, &pc)
	}
	return &c
}
