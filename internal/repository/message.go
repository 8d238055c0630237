package repository

import (
	"context"
	"errors"
	"time"

	"silver-social-backend/internal/apperrors"
	"silver-social-backend/internal/models"
	"silver-social-backend/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	_ services.UserStore       = (*UserRepository)(nil)
	_ services.LikeStore       = (*LikeRepository)(nil)
	_ services.MatchStore      = (*MatchRepository)(nil)
	_ services.MessageStore    = (*MessageRepository)(nil)
	_ services.ReadMarkerStore = (*ReadMarkerRepository)(nil)
	_ services.ActivityStore   = (*ActivityRepository)(nil)
)

const messageColumns = `id, seq, sender_id, receiver_id, content, source, created_at`

// pairFilter matches messages in either direction between $1 and $2
const pairFilter = `((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))`

// MessageRepository handles database operations for messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func scanMessage(row scanner) (*models.Message, error) {
	var msg models.Message
	var source *string
	if err := row.Scan(&msg.ID, &msg.Seq, &msg.SenderID, &msg.ReceiverID, &msg.Content, &source, &msg.CreatedAt); err != nil {
		return nil, err
	}
	if source != nil {
		msg.Source = models.MessageSource(*source).Ptr()
	}
	return &msg, nil
}

// Create inserts a message and fills in its sequence number
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	var source *string
	if msg.Source != nil {
		s := string(*msg.Source)
		source = &s
	}

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, content, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`
	err := r.db.QueryRow(ctx, query,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, source, msg.CreatedAt,
	).Scan(&msg.Seq)
	if err != nil {
		return classify(err, "user", "create message")
	}
	return nil
}

// Latest retrieves the newest message between two users
func (r *MessageRepository) Latest(ctx context.Context, userID, otherID string) (*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE ` + pairFilter + `
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`
	msg, err := scanMessage(r.db.QueryRow(ctx, query, userID, otherID))
	if err != nil {
		return nil, classify(err, "message", "get latest message")
	}
	return msg, nil
}

// Counterparts lists the users userID exchanged messages tagged source with
func (r *MessageRepository) Counterparts(ctx context.Context, userID string, source models.MessageSource) ([]services.Counterpart, error) {
	query := `
		SELECT other_id, MAX(created_at) AS last_seen
		FROM (
			SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS other_id, created_at
			FROM messages
			WHERE (sender_id = $1 OR receiver_id = $1) AND source = $2
		) m
		GROUP BY other_id
		ORDER BY last_seen DESC, other_id
	`
	rows, err := r.db.Query(ctx, query, userID, string(source))
	if err != nil {
		return nil, classify(err, "message", "list counterparts")
	}
	defer rows.Close()

	var out []services.Counterpart
	for rows.Next() {
		var c services.Counterpart
		if err := rows.Scan(&c.UserID, &c.LastSeen); err != nil {
			return nil, classify(err, "message", "scan counterpart")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "message", "iterate counterparts")
	}
	return out, nil
}

// CountUnread counts messages from otherID to userID created after since
func (r *MessageRepository) CountUnread(ctx context.Context, userID, otherID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE sender_id = $2 AND receiver_id = $1 AND created_at > $3
	`
	var n int
	if err := r.db.QueryRow(ctx, query, userID, otherID, since).Scan(&n); err != nil {
		return 0, classify(err, "message", "count unread messages")
	}
	return n, nil
}

// ListConversation returns the limit most recent messages between two users, oldest first
func (r *MessageRepository) ListConversation(ctx context.Context, userID, otherID string, limit int) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM (
			SELECT ` + messageColumns + `
			FROM messages
			WHERE ` + pairFilter + `
			ORDER BY created_at DESC, seq DESC
			LIMIT $3
		) recent
		ORDER BY created_at, seq
	`
	rows, err := r.db.Query(ctx, query, userID, otherID, limit)
	if err != nil {
		return nil, classify(err, "message", "list messages")
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, classify(err, "message", "scan message")
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "message", "iterate messages")
	}
	return messages, nil
}

// ReadMarkerRepository handles database operations for read markers
type ReadMarkerRepository struct {
	db *pgxpool.Pool
}

// NewReadMarkerRepository creates a new read marker repository
func NewReadMarkerRepository(db *pgxpool.Pool) *ReadMarkerRepository {
	return &ReadMarkerRepository{db: db}
}

// MarkRead moves the cutoff for (userID, otherID) forward to at
func (r *ReadMarkerRepository) MarkRead(ctx context.Context, userID, otherID string, at time.Time) error {
	if !validID(otherID) {
		return apperrors.NotFound("user not found")
	}
	query := `
		INSERT INTO read_markers (user_id, counterpart_id, last_read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, counterpart_id)
		DO UPDATE SET last_read_at = GREATEST(read_markers.last_read_at, EXCLUDED.last_read_at)
	`
	if _, err := r.db.Exec(ctx, query, userID, otherID, at); err != nil {
		return classify(err, "user", "mark read")
	}
	return nil
}

// LastRead returns the cutoff, or the zero time when the chat was never read
func (r *ReadMarkerRepository) LastRead(ctx context.Context, userID, otherID string) (time.Time, error) {
	query := `SELECT last_read_at FROM read_markers WHERE user_id = $1 AND counterpart_id = $2`
	var at time.Time
	err := r.db.QueryRow(ctx, query, userID, otherID).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, classify(err, "read marker", "get read marker")
	}
	return at, nil
}
