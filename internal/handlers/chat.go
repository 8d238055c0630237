package handlers

import (
	"net/http"

	"silver-social-backend/internal/middleware"
	"silver-social-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// ChatHandler handles the chat list, history and sending
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ListChats handles GET /chats
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chatService.ListChatPartners(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "list chats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

// MarkRead handles POST /chats/{userID}/read
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	otherID := chi.URLParam(r, "userID")
	if err := h.chatService.MarkRead(r.Context(), middleware.GetUserID(r.Context()), otherID); err != nil {
		respondServiceError(w, r, err, "mark chat read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetMessages handles GET /messages?user=&limit=
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondServiceError(w, r, err, "get messages")
		return
	}

	conv, err := h.chatService.History(r.Context(), middleware.GetUserID(r.Context()), r.URL.Query().Get("user"), limit)
	if err != nil {
		respondServiceError(w, r, err, "get messages")
		return
	}

	respondJSON(w, http.StatusOK, conv)
}

// SendMessage handles POST /messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req services.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "send message")
		return
	}

	msg, err := h.chatService.SendMessage(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, err, "send message")
		return
	}

	respondJSON(w, http.StatusCreated, msg)
}
