package handlers

import (
	"net/http"
	"time"

	"silver-social-backend/internal/middleware"
	"silver-social-backend/internal/services"
)

// AuthHandler handles registration, login and session lookups
type AuthHandler struct {
	userService  *services.UserService
	cookieSecure bool
	tokenTTL     time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *services.UserService, cookieSecure bool, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		cookieSecure: cookieSecure,
		tokenTTL:     tokenTTL,
	}
}

// LoginRequest represents a login form
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "register")
		return
	}

	result, err := h.userService.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "register")
		return
	}

	h.setSession(w, result.Token)
	respondJSON(w, http.StatusCreated, result)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err, "login")
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err, "login")
		return
	}

	h.setSession(w, result.Token)
	respondJSON(w, http.StatusOK, result)
}

// Logout handles POST /auth/logout by expiring the session cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /session. Anonymous callers get {"user": null}.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		respondJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "load session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user":      user,
		"onboarded": user.Onboarded(),
	})
}

func (h *AuthHandler) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
