package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"silver-social-backend/internal/apperrors"
	"silver-social-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ActivityService handles group activities and memberships
type ActivityService struct {
	activities ActivityStore
	users      UserStore
	now        func() time.Time
}

// NewActivityService creates a new activity service
func NewActivityService(activities ActivityStore, users UserStore) *ActivityService {
	return &ActivityService{
		activities: activities,
		users:      users,
		now:        time.Now,
	}
}

// CreateActivityRequest is the body of POST /activities
type CreateActivityRequest struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description"`
	Date         string `json:"date" validate:"required"`
	Location     string `json:"location" validate:"required"`
	Capacity     *int   `json:"capacity"`
	Category     string `json:"category" validate:"required"`
	ContactPhone string `json:"contactPhone" validate:"required"`
}

// Create validates and stores a new activity owned by creatorID
func (s *ActivityService) Create(ctx context.Context, creatorID string, req CreateActivityRequest) (*models.Activity, error) {
	if creatorID == "" {
		return nil, apperrors.Authentication("login required")
	}

	title := strings.TrimSpace(req.Title)
	location := strings.TrimSpace(req.Location)
	phone := strings.TrimSpace(req.ContactPhone)
	if title == "" || location == "" || phone == "" || strings.TrimSpace(req.Date) == "" {
		return nil, apperrors.Validation("title, date, location and contactPhone are required")
	}

	date, err := time.Parse(time.RFC3339, strings.TrimSpace(req.Date))
	if err != nil {
		return nil, apperrors.Validation("date must be RFC3339")
	}

	category, ok := models.ParseCategory(req.Category)
	if !ok {
		return nil, apperrors.Validation("unknown category: %s", req.Category)
	}

	if req.Capacity != nil && *req.Capacity <= 0 {
		return nil, apperrors.Validation("capacity must be positive")
	}

	creator, err := s.users.GetByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	activity := &models.Activity{
		ID:           uuid.New().String(),
		Title:        title,
		Description:  strings.TrimSpace(req.Description),
		Date:         date.UTC(),
		Location:     location,
		Capacity:     req.Capacity,
		Category:     category,
		CreatorID:    creatorID,
		CreatorName:  creator.DisplayName,
		ContactPhone: phone,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}

	log.Info().
		Str("activity_id", activity.ID).
		Str("creator_id", creatorID).
		Str("category", string(category)).
		Msg("Activity created")

	return activity, nil
}

// Get returns an activity relative to viewerID, which may be empty
func (s *ActivityService) Get(ctx context.Context, activityID, viewerID string) (*models.Activity, error) {
	if strings.TrimSpace(activityID) == "" {
		return nil, apperrors.Validation("activity id is required")
	}
	return s.activities.GetByID(ctx, activityID, viewerID)
}

// List returns every activity by date ascending
func (s *ActivityService) List(ctx context.Context, viewerID string) ([]*models.Activity, error) {
	activities, err := s.activities.List(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

// Join adds userID to the activity and returns the participant count. Joining twice is a no-op.
func (s *ActivityService) Join(ctx context.Context, activityID, userID string) (int, error) {
	if userID == "" {
		return 0, apperrors.Authentication("login required")
	}
	if _, err := s.Get(ctx, activityID, userID); err != nil {
		return 0, err
	}

	if err := s.activities.Join(ctx, activityID, userID, s.now().UTC()); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return 0, apperrors.Conflict(err, "activity is full")
		}
		return 0, fmt.Errorf("failed to join activity: %w", err)
	}

	count, err := s.activities.CountParticipants(ctx, activityID)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}

	log.Info().Str("activity_id", activityID).Str("user_id", userID).Int("joined_count", count).Msg("Activity joined")

	return count, nil
}

// Leave removes userID from the activity and returns the participant count
func (s *ActivityService) Leave(ctx context.Context, activityID, userID string) (int, error) {
	if userID == "" {
		return 0, apperrors.Authentication("login required")
	}
	if _, err := s.Get(ctx, activityID, userID); err != nil {
		return 0, err
	}

	if err := s.activities.Leave(ctx, activityID, userID); err != nil {
		return 0, fmt.Errorf("failed to leave activity: %w", err)
	}

	count, err := s.activities.CountParticipants(ctx, activityID)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}

	log.Info().Str("activity_id", activityID).Str("user_id", userID).Int("joined_count", count).Msg("Activity left")

	return count, nil
}
