package handlers

import (
	"net/http"

	"silver-social-backend/internal/middleware"
	"silver-social-backend/internal/services"
)

// ProfileHandler handles profile and discovery requests
type ProfileHandler struct {
	userService *services.UserService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(userService *services.UserService) *ProfileHandler {
	return &ProfileHandler{userService: userService}
}

// PushTokenRequest carries a device token
type PushTokenRequest struct {
	PushToken string `json:"pushToken"`
}

// GetProfile handles GET /profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "get profile")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.ProfileUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "update profile")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, err, "update profile")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdatePushToken handles PUT /profile/push-token
func (h *ProfileHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	var req PushTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "update push token")
		return
	}

	if err := h.userService.UpdatePushToken(r.Context(), middleware.GetUserID(r.Context()), req.PushToken); err != nil {
		respondServiceError(w, r, err, "update push token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Discover handles GET /users?limit=
func (h *ProfileHandler) Discover(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondServiceError(w, r, err, "discover users")
		return
	}

	users, err := h.userService.Discover(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		respondServiceError(w, r, err, "discover users")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}
