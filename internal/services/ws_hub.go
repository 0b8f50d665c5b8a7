package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsWriteTimeout = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string   `json:"type"`
	Timestamp int64    `json:"timestamp,omitempty"`
	TripID    string   `json:"trip_id,omitempty"`
	ViewerID  string   `json:"viewer_id,omitempty"`
	Liked     *bool    `json:"liked,omitempty"`
	LikeCount *int     `json:"like_count,omitempty"`
	Score     *float64 `json:"trending_score,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// wsClient serialises writes to one connection; gorilla allows a single writer
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages WebSocket connections of trip owners
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]*wsClient),
	}
}

// Register registers a new WebSocket connection for a user,
// replacing any connection the user already had
func (h *WSHub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.connections[userID]; exists {
		existing.conn.Close()
	}
	h.connections[userID] = &wsClient{conn: conn}

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes the connection for a user if it is still conn
func (h *WSHub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.connections[userID]; exists && client.conn == conn {
		client.conn.Close()
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	client, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	if message.Timestamp == 0 {
		message.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := client.write(data); err != nil {
		h.Unregister(userID, client.conn)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// NotifyLikeChanged tells a trip owner about a like transition on their trip
func (h *WSHub) NotifyLikeChanged(event LikeEvent) error {
	liked := event.Liked
	count := event.LikeCount
	score := event.Score
	return h.SendToUser(event.OwnerID, WSMessage{
		Type:      "like_changed",
		TripID:    event.TripID,
		ViewerID:  event.ViewerID,
		Liked:     &liked,
		LikeCount: &count,
		Score:     &score,
	})
}
