package services

import (
	"context"

	"travel-feed-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// LikeDispatcher routes like events to trip owners: a WebSocket message when
// the owner is connected, otherwise an APNs push for new likes.
// Delivery is best effort; failures are logged and never reach the toggle.
type LikeDispatcher struct {
	hub    *WSHub
	pusher Pusher
	users  repository.UserStore
}

// NewLikeDispatcher creates a dispatcher. pusher may be nil to disable pushes.
func NewLikeDispatcher(hub *WSHub, pusher Pusher, users repository.UserStore) *LikeDispatcher {
	return &LikeDispatcher{
		hub:    hub,
		pusher: pusher,
		users:  users,
	}
}

// LikeChanged implements LikeNotifier
func (d *LikeDispatcher) LikeChanged(ctx context.Context, event LikeEvent) {
	if event.OwnerID == event.ViewerID {
		return
	}

	if d.hub != nil && d.hub.IsOnline(event.OwnerID) {
		if err := d.hub.NotifyLikeChanged(event); err != nil {
			log.Error().
				Err(err).
				Str("user_id", event.OwnerID).
				Str("trip_id", event.TripID).
				Msg("Failed to notify owner over WebSocket")
		} else {
			return
		}
	}

	if d.pusher == nil || !event.Liked {
		return
	}

	owner, err := d.users.GetByID(ctx, event.OwnerID)
	if err != nil {
		log.Error().Err(err).Str("user_id", event.OwnerID).Msg("Failed to load trip owner")
		return
	}
	if owner.PushToken == nil || *owner.PushToken == "" {
		return
	}

	err = d.pusher.Push(ctx, *owner.PushToken, "New like", "Someone liked your trip", map[string]string{
		"type":    "like_changed",
		"trip_id": event.TripID,
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", event.OwnerID).
			Str("trip_id", event.TripID).
			Msg("Failed to push like notification")
	}
}
