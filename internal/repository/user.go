package repository

import (
	"context"

	"silver-social-backend/internal/apperrors"
	"silver-social-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, display_name, gender, age_group, city,
	interests, bio, avatar_url, gallery_urls, push_token, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row scanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.Gender,
		&user.AgeGroup, &user.City, &user.Interests, &user.Bio, &user.AvatarURL,
		&user.GalleryURLs, &user.PushToken, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if user.GalleryURLs == nil {
		user.GalleryURLs = []string{}
	}
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, display_name, gender, age_group, city,
			interests, bio, avatar_url, gallery_urls, push_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	gallery := user.GalleryURLs
	if gallery == nil {
		gallery = []string{}
	}
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.DisplayName, user.Gender, user.AgeGroup,
		user.City, user.Interests, user.Bio, user.AvatarURL, gallery, user.PushToken,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return classify(err, "user", "create user")
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, apperrors.NotFound("user not found")
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classify(err, "user", "get user")
	}
	return user, nil
}

// GetByEmail retrieves a user by login email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, classify(err, "user", "get user by email")
	}
	return user, nil
}

// GetMany retrieves the users with the given ids, keyed by id. Unknown ids are skipped.
func (r *UserRepository) GetMany(ctx context.Context, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(ids))
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return out, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1::uuid[])`
	rows, err := r.db.Query(ctx, query, valid)
	if err != nil {
		return nil, classify(err, "user", "get users")
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, classify(err, "user", "scan user")
		}
		out[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "user", "iterate users")
	}
	return out, nil
}

// UpdateProfile writes the onboarding fields of a user
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET display_name = $2, gender = $3, age_group = $4, city = $5, interests = $6,
			bio = $7, avatar_url = $8, gallery_urls = $9, updated_at = $10
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		user.ID, user.DisplayName, user.Gender, user.AgeGroup, user.City, user.Interests,
		user.Bio, user.AvatarURL, user.GalleryURLs, user.UpdatedAt,
	)
	if err != nil {
		return classify(err, "user", "update profile")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	if !validID(userID) {
		return apperrors.NotFound("user not found")
	}
	query := `UPDATE users SET push_token = $1 WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, pushToken, userID)
	if err != nil {
		return classify(err, "user", "update push token")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}

// ListDiscoverable lists users other than viewerID that viewerID has not liked, newest first
func (r *UserRepository) ListDiscoverable(ctx context.Context, viewerID string, limit int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		WHERE u.id <> $1
		  AND NOT EXISTS (
			SELECT 1 FROM likes l WHERE l.liker_id = $1 AND l.liked_id = u.id
		  )
		ORDER BY u.created_at DESC, u.id
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, viewerID, limit)
	if err != nil {
		return nil, classify(err, "user", "list users")
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, classify(err, "user", "scan user")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "user", "iterate users")
	}
	return users, nil
}
