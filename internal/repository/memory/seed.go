package memory

import (
	"fmt"
	"os"
	"time"

	"travel-feed-backend/internal/models"
	"travel-feed-backend/internal/scoring"

	"gopkg.in/yaml.v3"
)

// Seed is the YAML fixture format accepted by LoadSeed
type Seed struct {
	Users []SeedUser `yaml:"users"`
	Trips []SeedTrip `yaml:"trips"`
}

type SeedUser struct {
	ID        string `yaml:"id"`
	Username  string `yaml:"username"`
	PushToken string `yaml:"push_token"`
}

type SeedTrip struct {
	ID          string      `yaml:"id"`
	OwnerID     string      `yaml:"owner_id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Status      string      `yaml:"status"`
	Tags        []string    `yaml:"tags"`
	CreatedAt   time.Time   `yaml:"created_at"`
	Places      []SeedPlace `yaml:"places"`
	LikedBy     []string    `yaml:"liked_by"`
}

type SeedPlace struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Review      string   `yaml:"review"`
	Pictures    []string `yaml:"pictures"`
}

// LoadSeed reads a YAML fixture file into s
func (s *Store) LoadSeed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	return s.ApplySeed(&seed)
}

// ApplySeed inserts users, trips and likes from seed
func (s *Store) ApplySeed(seed *Seed) error {
	for _, u := range seed.Users {
		user := &models.User{ID: u.ID, Username: u.Username}
		if u.PushToken != "" {
			token := u.PushToken
			user.PushToken = &token
		}
		s.AddUser(user)
	}

	for _, st := range seed.Trips {
		trip := &models.Trip{
			ID:          st.ID,
			OwnerID:     st.OwnerID,
			Name:        st.Name,
			Description: st.Description,
			Status:      st.Status,
			Tags:        st.Tags,
			CreatedAt:   st.CreatedAt,
		}
		for _, sp := range st.Places {
			place := &models.Place{
				Name:        sp.Name,
				Description: sp.Description,
				Review:      sp.Review,
			}
			for _, url := range sp.Pictures {
				place.Pictures = append(place.Pictures, &models.Picture{URL: url})
			}
			trip.Places = append(trip.Places, place)
		}

		added, err := s.AddTrip(trip)
		if err != nil {
			return fmt.Errorf("failed to seed trip %q: %w", st.Name, err)
		}
		for _, userID := range st.LikedBy {
			if err := s.SeedLike(added.ID, userID); err != nil {
				return fmt.Errorf("failed to seed like on %q: %w", st.Name, err)
			}
		}
	}
	return nil
}

// SeedLike records a like without going through a toggle and refreshes the
// trip's cached count and score
func (s *Store) SeedLike(tripID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trips[tripID]
	if !ok {
		return fmt.Errorf("trip not found: %w", models.ErrNotFound)
	}
	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("user not found: %w", models.ErrNotFound)
	}
	if s.likes[tripID] == nil {
		s.likes[tripID] = make(map[string]time.Time)
	}
	s.likes[tripID][userID] = time.Now()
	t.LikeCount = len(s.likes[tripID])
	t.TrendingScore = scoring.Score(t.LikeCount, t.CreatedAt)
	return nil
}
