package repository

import (
	"context"
	"time"

	"silver-social-backend/internal/apperrors"
	"silver-social-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// activitySelect reads an activity with its creator name, participant count
// and whether the viewer ($1, possibly empty) has joined.
const activitySelect = `
	SELECT a.id, a.title, a.description, a.date, a.location, a.capacity, a.category,
		a.creator_id, u.display_name, a.contact_phone, a.created_at,
		(SELECT COUNT(*) FROM activity_participants p WHERE p.activity_id = a.id),
		EXISTS(SELECT 1 FROM activity_participants p WHERE p.activity_id = a.id AND p.user_id::text = $1)
	FROM activities a
	JOIN users u ON u.id = a.creator_id
`

// ActivityRepository handles database operations for activities and participants
type ActivityRepository struct {
	db *pgxpool.Pool
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func scanActivity(row scanner) (*models.Activity, error) {
	var a models.Activity
	var category string
	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.Date, &a.Location, &a.Capacity, &category,
		&a.CreatorID, &a.CreatorName, &a.ContactPhone, &a.CreatedAt,
		&a.JoinedCount, &a.Joined,
	)
	if err != nil {
		return nil, err
	}
	a.Category = models.ActivityCategory(category)
	return &a, nil
}

// Create creates a new activity
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	query := `
		INSERT INTO activities (id, title, description, date, location, capacity, category,
			creator_id, contact_phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		activity.ID, activity.Title, activity.Description, activity.Date, activity.Location,
		activity.Capacity, string(activity.Category), activity.CreatorID, activity.ContactPhone,
		activity.CreatedAt,
	)
	if err != nil {
		return classify(err, "activity", "create activity")
	}
	return nil
}

// GetByID retrieves an activity as seen by viewerID
func (r *ActivityRepository) GetByID(ctx context.Context, id, viewerID string) (*models.Activity, error) {
	if !validID(id) {
		return nil, apperrors.NotFound("activity not found")
	}
	activity, err := scanActivity(r.db.QueryRow(ctx, activitySelect+` WHERE a.id = $2`, viewerID, id))
	if err != nil {
		return nil, classify(err, "activity", "get activity")
	}
	return activity, nil
}

// List retrieves every activity by date
func (r *ActivityRepository) List(ctx context.Context, viewerID string) ([]*models.Activity, error) {
	rows, err := r.db.Query(ctx, activitySelect+` ORDER BY a.date, a.id`, viewerID)
	if err != nil {
		return nil, classify(err, "activity", "list activities")
	}
	defer rows.Close()

	activities := []*models.Activity{}
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, classify(err, "activity", "scan activity")
		}
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "activity", "iterate activities")
	}
	return activities, nil
}

// Join adds a participant. The activity row is locked so concurrent joins
// cannot exceed its capacity.
func (r *ActivityRepository) Join(ctx context.Context, activityID, userID string, at time.Time) error {
	if !validID(activityID) {
		return apperrors.NotFound("activity not found")
	}

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var capacity *int
		err := tx.QueryRow(ctx, `SELECT capacity FROM activities WHERE id = $1 FOR UPDATE`, activityID).Scan(&capacity)
		if err != nil {
			return classify(err, "activity", "lock activity")
		}

		var joined bool
		var count int
		err = tx.QueryRow(ctx, `
			SELECT
				EXISTS(SELECT 1 FROM activity_participants WHERE activity_id = $1 AND user_id = $2),
				(SELECT COUNT(*) FROM activity_participants WHERE activity_id = $1)
		`, activityID, userID).Scan(&joined, &count)
		if err != nil {
			return classify(err, "activity", "check participants")
		}
		if joined {
			return nil
		}
		if capacity != nil && count >= *capacity {
			return apperrors.Conflict(nil, "activity is full")
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO activity_participants (activity_id, user_id, joined_at)
			VALUES ($1, $2, $3)
		`, activityID, userID, at)
		if err != nil {
			return classify(err, "user", "join activity")
		}
		return nil
	})
}

// Leave removes a participant
func (r *ActivityRepository) Leave(ctx context.Context, activityID, userID string) error {
	if !validID(activityID) {
		return apperrors.NotFound("activity not found")
	}
	query := `DELETE FROM activity_participants WHERE activity_id = $1 AND user_id = $2`
	if _, err := r.db.Exec(ctx, query, activityID, userID); err != nil {
		return classify(err, "activity", "leave activity")
	}
	return nil
}

// CountParticipants counts the members of an activity
func (r *ActivityRepository) CountParticipants(ctx context.Context, activityID string) (int, error) {
	query := `SELECT COUNT(*) FROM activity_participants WHERE activity_id = $1`
	var n int
	if err := r.db.QueryRow(ctx, query, activityID).Scan(&n); err != nil {
		return 0, classify(err, "activity", "count participants")
	}
	return n, nil
}
