package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"silver-social-backend/internal/apperrors"
	"silver-social-backend/internal/live"
	"silver-social-backend/internal/middleware"
	"silver-social-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const maxEventSize = 16 << 10

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are enforced by CORS on the REST API
	},
}

// WebSocketHandler handles live connections
type WebSocketHandler struct {
	hub         *live.Hub
	tokens      middleware.TokenValidator
	chatService *services.ChatService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *live.Hub, tokens middleware.TokenValidator, chatService *services.ChatService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		tokens:      tokens,
		chatService: chatService,
	}
}

// HandleWebSocket handles GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = middleware.TokenFromRequest(r)
	}
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	userID, err := h.tokens.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	conn.SetReadLimit(maxEventSize)

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			return
		}

		var ev live.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			h.sendError(userID, conn, apperrors.Validation("invalid message format"))
			continue
		}

		if err := h.handleEvent(ctx, userID, ev); err != nil {
			if apperrors.KindOf(err) == apperrors.KindStorage {
				log.Error().Err(err).Str("user_id", userID).Str("type", ev.Type).Msg("Failed to handle live event")
			}
			h.sendError(userID, conn, err)
		}
	}
}

// handleEvent processes a client request
func (h *WebSocketHandler) handleEvent(ctx context.Context, userID string, ev live.Event) error {
	switch ev.Type {
	case live.EventReadChat:
		return h.chatService.MarkRead(ctx, userID, ev.Other)
	case live.EventSendMessage:
		_, err := h.chatService.SendMessage(ctx, userID, services.SendMessageRequest{
			ReceiverID: ev.To,
			Content:    ev.Content,
			Source:     ev.Source,
		})
		return err
	default:
		return apperrors.Validation("unknown message type: %s", ev.Type)
	}
}

// sendError answers on the connection that made the request, never a newer one
func (h *WebSocketHandler) sendError(userID string, conn *websocket.Conn, err error) {
	if sendErr := h.hub.SendToConn(userID, conn, live.ErrorEvent(apperrors.PublicMessage(err))); sendErr != nil {
		log.Warn().Err(sendErr).Str("user_id", userID).Msg("Failed to send error event")
	}
}
