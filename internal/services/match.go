package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"silver-social-backend/internal/apperrors"
	"silver-social-backend/internal/live"
	"silver-social-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MatchService records likes and detects mutual matches
type MatchService struct {
	likes     LikeStore
	matches   MatchStore
	users     UserStore
	publisher Publisher
	notifier  Notifier
	now       func() time.Time
}

// NewMatchService creates a new match service
func NewMatchService(likes LikeStore, matches MatchStore, users UserStore, publisher Publisher, notifier Notifier) *MatchService {
	return &MatchService{
		likes:     likes,
		matches:   matches,
		users:     users,
		publisher: publisher,
		notifier:  notifier,
		now:       time.Now,
	}
}

// LikeResult is the outcome of RecordLike. When IsMutual is set the pair can
// start chatting with Source MATCH.
type LikeResult struct {
	IsMutual bool                 `json:"isMutual"`
	MatchID  string               `json:"matchId,omitempty"`
	Source   models.MessageSource `json:"source,omitempty"`
}

// RecordLike stores likerID -> likedID and creates the match when the reverse
// like already exists. Repeating a like is a no-op.
func (s *MatchService) RecordLike(ctx context.Context, likerID, likedID string) (*LikeResult, error) {
	likerID = strings.TrimSpace(likerID)
	likedID = strings.TrimSpace(likedID)

	if likerID == "" || likedID == "" {
		return nil, apperrors.Validation("likerId and likedId are required")
	}
	if likerID == likedID {
		return nil, apperrors.Validation("cannot like yourself")
	}

	liked, err := s.users.GetByID(ctx, likedID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to get liked user: %w", err)
	}
	// the store may resolve ids case-insensitively; pair keys use the stored form
	if liked.ID == likerID {
		return nil, apperrors.Validation("cannot like yourself")
	}

	newLike, err := s.likes.Create(ctx, &models.Like{
		LikerID:   likerID,
		LikedID:   liked.ID,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record like: %w", err)
	}

	reverse, err := s.likes.Exists(ctx, liked.ID, likerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check reverse like: %w", err)
	}

	log.Info().
		Str("liker_id", likerID).
		Str("liked_id", liked.ID).
		Bool("new", newLike).
		Bool("mutual", reverse).
		Msg("Like recorded")

	if !reverse {
		return &LikeResult{IsMutual: false}, nil
	}

	match, created, err := s.ensureMatch(ctx, likerID, liked.ID)
	if err != nil {
		return nil, err
	}
	if created {
		s.announceMatch(ctx, match, likerID, liked)
	}

	return &LikeResult{
		IsMutual: true,
		MatchID:  match.ID,
		Source:   models.SourceMatch,
	}, nil
}

// ensureMatch creates the match for the pair. A uniqueness conflict means a
// concurrent like already created it, which counts as success.
func (s *MatchService) ensureMatch(ctx context.Context, x, y string) (*models.Match, bool, error) {
	a, b := models.NewMatchPair(x, y)
	match := &models.Match{
		ID:        uuid.New().String(),
		UserAID:   a,
		UserBID:   b,
		CreatedAt: s.now().UTC(),
	}

	err := s.matches.Create(ctx, match)
	if err == nil {
		log.Info().Str("match_id", match.ID).Str("user_a_id", a).Str("user_b_id", b).Msg("Match created")
		return match, true, nil
	}
	if !errors.Is(err, apperrors.ErrConflict) {
		return nil, false, fmt.Errorf("failed to create match: %w", err)
	}

	existing, err := s.matches.GetByPair(ctx, a, b)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get existing match: %w", err)
	}
	return existing, false, nil
}

func (s *MatchService) announceMatch(ctx context.Context, match *models.Match, likerID string, liked *models.User) {
	liker, err := s.users.GetByID(ctx, likerID)
	if err != nil {
		log.Error().Err(err).Str("user_id", likerID).Msg("Failed to load liker for match notification")
		liker = &models.User{ID: likerID}
	}

	event := live.MatchCreatedEvent(match)
	for _, pair := range [][2]*models.User{{liker, liked}, {liked, liker}} {
		user, other := pair[0], pair[1]

		if s.publisher.IsOnline(user.ID) {
			if err := s.publisher.Publish(ctx, user.ID, event); err != nil {
				log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to publish match")
			}
			continue
		}

		alert := Alert{
			Title: "新的配對",
			Body:  fmt.Sprintf("你和 %s 互相喜歡了！", other.DisplayName),
			Data:  map[string]string{"type": live.EventMatchCreated, "userId": other.ID},
		}
		if err := s.notifier.Notify(ctx, user, alert); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to push match notification")
		}
	}
}

// MatchSummary is a match with the counterpart's profile
type MatchSummary struct {
	Match *models.Match `json:"match"`
	User  *models.User  `json:"user"`
}

// ListMatches returns the user's matches, newest first
func (s *MatchService) ListMatches(ctx context.Context, userID string) ([]MatchSummary, error) {
	if userID == "" {
		return nil, apperrors.Authentication("login required")
	}

	matches, err := s.matches.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.OtherUserID(userID))
	}
	profiles, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load match profiles: %w", err)
	}

	out := make([]MatchSummary, 0, len(matches))
	for _, m := range matches {
		other, ok := profiles[m.OtherUserID(userID)]
		if !ok {
			continue
		}
		out = append(out, MatchSummary{Match: m, User: other})
	}
	return out, nil
}
