package handlers

import (
	"net/http"

	"silver-social-backend/internal/middleware"
	"silver-social-backend/internal/services"
)

// MatchHandler handles likes and matches
type MatchHandler struct {
	matchService *services.MatchService
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matchService *services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

// LikeRequest represents a like
type LikeRequest struct {
	LikedID string `json:"likedId" validate:"required"`
}

// Like handles POST /likes
func (h *MatchHandler) Like(w http.ResponseWriter, r *http.Request) {
	var req LikeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "record like")
		return
	}

	result, err := h.matchService.RecordLike(r.Context(), middleware.GetUserID(r.Context()), req.LikedID)
	if err != nil {
		respondServiceError(w, r, err, "record like")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ListMatches handles GET /matches
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matchService.ListMatches(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "list matches")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"matches": matches})
}
