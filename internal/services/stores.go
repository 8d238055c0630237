package services

import (
	"context"
	"time"

	"silver-social-backend/internal/live"
	"silver-social-backend/internal/models"
)

// Store contracts implemented by internal/repository (Postgres) and
// internal/repository/memory. Not-found lookups return apperrors.ErrNotFound;
// uniqueness violations return apperrors.ErrConflict.

// UserStore persists users and their profiles
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetMany(ctx context.Context, ids []string) (map[string]*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
	ListDiscoverable(ctx context.Context, viewerID string, limit int) ([]*models.User, error)
}

// LikeStore persists directed like edges
type LikeStore interface {
	// Create inserts the edge if absent and reports whether it was new
	Create(ctx context.Context, like *models.Like) (bool, error)
	Exists(ctx context.Context, likerID, likedID string) (bool, error)
}

// MatchStore persists matches keyed by the ordered user pair
type MatchStore interface {
	// Create fails with apperrors.ErrConflict when the pair already has a match
	Create(ctx context.Context, match *models.Match) error
	GetByPair(ctx context.Context, userAID, userBID string) (*models.Match, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Match, error)
}

// MessageStore persists direct messages
type MessageStore interface {
	// Create assigns Seq
	Create(ctx context.Context, msg *models.Message) error
	// Latest returns the newest message between two users, ties broken by Seq
	Latest(ctx context.Context, userID, otherID string) (*models.Message, error)
	// Counterparts lists users who exchanged a message tagged source with userID,
	// with the time of the newest such message
	Counterparts(ctx context.Context, userID string, source models.MessageSource) ([]Counterpart, error)
	// CountUnread counts messages from otherID to userID created strictly after since
	CountUnread(ctx context.Context, userID, otherID string, since time.Time) (int, error)
	// ListConversation returns up to limit most recent messages in ascending order
	ListConversation(ctx context.Context, userID, otherID string, limit int) ([]*models.Message, error)
}

// Counterpart is a user reached through messages of a given source
type Counterpart struct {
	UserID   string
	LastSeen time.Time
}

// ReadMarkerStore persists per-conversation read cutoffs
type ReadMarkerStore interface {
	// MarkRead moves the cutoff forward to at; it never moves backwards
	MarkRead(ctx context.Context, userID, otherID string, at time.Time) error
	// LastRead returns the zero time when the conversation was never read
	LastRead(ctx context.Context, userID, otherID string) (time.Time, error)
}

// ActivityStore persists activities and memberships
type ActivityStore interface {
	Create(ctx context.Context, activity *models.Activity) error
	// GetByID fills Joined relative to viewerID, which may be empty
	GetByID(ctx context.Context, id, viewerID string) (*models.Activity, error)
	List(ctx context.Context, viewerID string) ([]*models.Activity, error)
	// Join adds the membership if absent. It fails with apperrors.ErrConflict
	// when the activity is at capacity and the user is not already a member.
	Join(ctx context.Context, activityID, userID string, at time.Time) error
	Leave(ctx context.Context, activityID, userID string) error
	CountParticipants(ctx context.Context, activityID string) (int, error)
}

// Publisher delivers live events to connected users
type Publisher interface {
	Publish(ctx context.Context, userID string, event live.Event) error
	IsOnline(userID string) bool
}
