package repository

import (
	"context"

	"silver-social-backend/internal/apperrors"
	"silver-social-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LikeRepository handles database operations for likes
type LikeRepository struct {
	db *pgxpool.Pool
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *pgxpool.Pool) *LikeRepository {
	return &LikeRepository{db: db}
}

// Create inserts the like unless it already exists and reports whether a row was added
func (r *LikeRepository) Create(ctx context.Context, like *models.Like) (bool, error) {
	query := `
		INSERT INTO likes (liker_id, liked_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (liker_id, liked_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, like.LikerID, like.LikedID, like.CreatedAt)
	if err != nil {
		return false, classify(err, "user", "create like")
	}
	return tag.RowsAffected() == 1, nil
}

// Exists checks whether likerID has liked likedID
func (r *LikeRepository) Exists(ctx context.Context, likerID, likedID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM likes WHERE liker_id = $1 AND liked_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, likerID, likedID).Scan(&exists); err != nil {
		return false, classify(err, "like", "check like")
	}
	return exists, nil
}

// MatchRepository handles database operations for matches
type MatchRepository struct {
	db *pgxpool.Pool
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// Create inserts a match. A second match for the same pair violates
// matches_pair_key and is reported as apperrors.ErrConflict.
func (r *MatchRepository) Create(ctx context.Context, match *models.Match) error {
	a, b := models.NewMatchPair(match.UserAID, match.UserBID)
	query := `
		INSERT INTO matches (id, user_a_id, user_b_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, match.ID, a, b, match.CreatedAt)
	if err != nil {
		return classify(err, "match", "create match")
	}
	match.UserAID, match.UserBID = a, b
	return nil
}

// GetByPair retrieves the match of two users in either order
func (r *MatchRepository) GetByPair(ctx context.Context, userAID, userBID string) (*models.Match, error) {
	if !validID(userAID) || !validID(userBID) {
		return nil, apperrors.NotFound("match not found")
	}
	a, b := models.NewMatchPair(userAID, userBID)
	query := `
		SELECT id, user_a_id, user_b_id, created_at
		FROM matches
		WHERE user_a_id = $1 AND user_b_id = $2
	`
	var match models.Match
	err := r.db.QueryRow(ctx, query, a, b).Scan(
		&match.ID, &match.UserAID, &match.UserBID, &match.CreatedAt,
	)
	if err != nil {
		return nil, classify(err, "match", "get match")
	}
	return &match, nil
}

// ListByUser retrieves every match of a user, newest first
func (r *MatchRepository) ListByUser(ctx context.Context, userID string) ([]*models.Match, error) {
	query := `
		SELECT id, user_a_id, user_b_id, created_at
		FROM matches
		WHERE user_a_id = $1 OR user_b_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, classify(err, "match", "list matches")
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		var match models.Match
		if err := rows.Scan(&match.ID, &match.UserAID, &match.UserBID, &match.CreatedAt); err != nil {
			return nil, classify(err, "match", "scan match")
		}
		matches = append(matches, &match)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "match", "iterate matches")
	}
	return matches, nil
}
