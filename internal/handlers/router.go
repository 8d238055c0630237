package handlers

import (
	"net/http"
	"time"

	"silver-social-backend/internal/live"
	"silver-social-backend/internal/middleware"
	"silver-social-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// RouterOptions wires the HTTP surface to its services
type RouterOptions struct {
	AllowedOrigins []string
	CookieSecure   bool
	TokenTTL       time.Duration

	Users      *services.UserService
	Matches    *services.MatchService
	Chats      *services.ChatService
	Activities *services.ActivityService
	Media      *services.MediaService // nil disables uploads
	Hub        *live.Hub
}

// NewRouter builds the API router
func NewRouter(opts RouterOptions) http.Handler {
	authHandler := NewAuthHandler(opts.Users, opts.CookieSecure, opts.TokenTTL)
	profileHandler := NewProfileHandler(opts.Users)
	matchHandler := NewMatchHandler(opts.Matches)
	chatHandler := NewChatHandler(opts.Chats)
	activityHandler := NewActivityHandler(opts.Activities)
	uploadHandler := NewUploadHandler(opts.Media)
	wsHandler := NewWebSocketHandler(opts.Hub, opts.Users, opts.Chats)

	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		// Anonymous or signed in
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(opts.Users))
			r.Get("/session", authHandler.Session)
			r.Get("/activities", activityHandler.List)
			r.Get("/activities/{id}", activityHandler.Get)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(opts.Users))

			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpdateProfile)
			r.Put("/profile/push-token", profileHandler.UpdatePushToken)
			r.Get("/users", profileHandler.Discover)

			r.Post("/likes", matchHandler.Like)
			r.Get("/matches", matchHandler.ListMatches)

			r.Get("/chats", chatHandler.ListChats)
			r.Post("/chats/{userID}/read", chatHandler.MarkRead)
			r.Get("/messages", chatHandler.GetMessages)
			r.Post("/messages", chatHandler.SendMessage)

			r.Post("/activities", activityHandler.Create)
			r.Post("/activities/{id}/join", activityHandler.Join)
			r.Delete("/activities/{id}/join", activityHandler.Leave)

			r.Post("/uploads", uploadHandler.Upload)
			r.Post("/uploads/presign", uploadHandler.Presign)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	return r
}
