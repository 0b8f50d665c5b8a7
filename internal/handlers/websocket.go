package handlers

import (
	"encoding/json"
	"net/http"

	"travel-feed-backend/internal/middleware"
	"travel-feed-backend/internal/models"
	"travel-feed-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler handles WebSocket connections of trip owners
type WebSocketHandler struct {
	hub       *services.WSHub
	validator middleware.TokenValidator
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, validator middleware.TokenValidator) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		validator: validator,
	}
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, r, models.ErrUnauthenticated)
		return
	}

	userID, err := h.validator.ValidateJWT(token)
	if err != nil {
		respondError(w, r, models.ErrUnauthenticated)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	// Owners only receive events; inbound frames are limited to pings.
	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			h.sendErrorToUser(userID, "Invalid message format")
			continue
		}

		switch msg.Type {
		case "ping":
			if err := h.hub.SendToUser(userID, services.WSMessage{Type: "pong"}); err != nil {
				log.Debug().Err(err).Str("user_id", userID).Msg("Failed to answer ping")
			}
		default:
			h.sendErrorToUser(userID, "Unknown message type")
		}
	}
}

// sendErrorToUser sends an error message to a user
func (h *WebSocketHandler) sendErrorToUser(userID, message string) {
	msg := services.WSMessage{
		Type:    "error",
		Message: message,
	}
	if err := h.hub.SendToUser(userID, msg); err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Failed to send error message")
	}
}
