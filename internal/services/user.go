package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"silver-social-backend/internal/apperrors"
	"silver-social-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength  = 6
	defaultDisplayName = "使用者"
	maxGalleryPhotos   = 6
)

// UserService handles registration, sessions and profiles
type UserService struct {
	users     UserStore
	jwtSecret string
	tokenTTL  time.Duration
	hashCost  int
	now       func() time.Time
}

// NewUserService creates a new user service
func NewUserService(users UserStore, jwtSecret string, tokenTTL time.Duration) *UserService {
	return &UserService{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		hashCost:  bcrypt.DefaultCost,
		now:       time.Now,
	}
}

// RegisterRequest represents a sign-up form
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"displayName"`
}

// AuthResult is returned by Register and Login
type AuthResult struct {
	User           *models.User `json:"user"`
	Token          string       `json:"token"`
	JustRegistered bool         `json:"justRegistered"`
}

// Register creates an account and opens a session
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, apperrors.Validation("email and password are required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperrors.Validation("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = defaultDisplayName
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		GalleryURLs:  []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.Conflict(err, "email already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Msg("User registered")

	return &AuthResult{User: user, Token: token, JustRegistered: true}, nil
}

// Login verifies credentials and opens a session
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.Validation("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Authentication("invalid email or password")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Authentication("invalid email or password")
	}

	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GenerateJWT generates a session token for a user
func (s *UserService) GenerateJWT(userID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a session token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return "", apperrors.Authentication("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", apperrors.Authentication("invalid token")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", apperrors.Authentication("user_id not found in token")
	}

	return userID, nil
}

// GetUser returns a user by id
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, apperrors.Authentication("login required")
	}
	return s.users.GetByID(ctx, userID)
}

// ProfileUpdate carries the onboarding form
type ProfileUpdate struct {
	DisplayName string   `json:"displayName"`
	Gender      string   `json:"gender"`
	AgeGroup    string   `json:"ageGroup"`
	City        string   `json:"city"`
	Interests   string   `json:"interests"`
	Bio         string   `json:"bio"`
	AvatarURL   string   `json:"avatarUrl"`
	GalleryURLs []string `json:"galleryUrls"`
}

// UpdateProfile replaces the caller's profile fields. Every field except the gallery is required.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*models.User, error) {
	if userID == "" {
		return nil, apperrors.Authentication("login required")
	}

	required := []struct {
		name  string
		value *string
	}{
		{"displayName", &upd.DisplayName},
		{"gender", &upd.Gender},
		{"ageGroup", &upd.AgeGroup},
		{"city", &upd.City},
		{"interests", &upd.Interests},
		{"bio", &upd.Bio},
		{"avatarUrl", &upd.AvatarURL},
	}
	for _, f := range required {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			return nil, apperrors.Validation("missing required field: %s", f.name)
		}
	}

	gallery := make([]string, 0, len(upd.GalleryURLs))
	for _, u := range upd.GalleryURLs {
		if u = strings.TrimSpace(u); u != "" {
			gallery = append(gallery, u)
		}
	}
	if len(gallery) > maxGalleryPhotos {
		return nil, apperrors.Validation("at most %d gallery photos are allowed", maxGalleryPhotos)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.DisplayName = upd.DisplayName
	user.Gender = upd.Gender
	user.AgeGroup = upd.AgeGroup
	user.City = upd.City
	user.Interests = upd.Interests
	user.Bio = upd.Bio
	user.AvatarURL = upd.AvatarURL
	user.GalleryURLs = gallery
	user.UpdatedAt = s.now().UTC()

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

// UpdatePushToken stores the device token used for offline notifications.
// An empty token clears it.
func (s *UserService) UpdatePushToken(ctx context.Context, userID, pushToken string) error {
	if userID == "" {
		return apperrors.Authentication("login required")
	}

	var token *string
	if t := strings.TrimSpace(pushToken); t != "" {
		token = &t
	}
	return s.users.UpdatePushToken(ctx, userID, token)
}

// Discover lists users the viewer has not liked yet
func (s *UserService) Discover(ctx context.Context, viewerID string, limit int) ([]*models.User, error) {
	if viewerID == "" {
		return nil, apperrors.Authentication("login required")
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	return s.users.ListDiscoverable(ctx, viewerID, limit)
}
