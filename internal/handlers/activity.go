package handlers

import (
	"net/http"

	"silver-social-backend/internal/middleware"
	"silver-social-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// ActivityHandler handles group activities
type ActivityHandler struct {
	activityService *services.ActivityService
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activityService *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// JoinResponse reports membership after a join or leave
type JoinResponse struct {
	Joined      bool `json:"joined"`
	JoinedCount int  `json:"joinedCount"`
}

// List handles GET /activities
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	activities, err := h.activityService.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "list activities")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"activities": activities})
}

// Get handles GET /activities/{id}
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	activity, err := h.activityService.Get(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "get activity")
		return
	}

	respondJSON(w, http.StatusOK, activity)
}

// Create handles POST /activities
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "create activity")
		return
	}

	activity, err := h.activityService.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, err, "create activity")
		return
	}

	respondJSON(w, http.StatusCreated, activity)
}

// Join handles POST /activities/{id}/join
func (h *ActivityHandler) Join(w http.ResponseWriter, r *http.Request) {
	count, err := h.activityService.Join(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "join activity")
		return
	}

	respondJSON(w, http.StatusOK, JoinResponse{Joined: true, JoinedCount: count})
}

// Leave handles DELETE /activities/{id}/join
func (h *ActivityHandler) Leave(w http.ResponseWriter, r *http.Request) {
	count, err := h.activityService.Leave(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "leave activity")
		return
	}

	respondJSON(w, http.StatusOK, JoinResponse{Joined: false, JoinedCount: count})
}
