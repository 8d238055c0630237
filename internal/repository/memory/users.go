package memory

import (
	"context"
	"sort"

	"silver-social-backend/internal/apperrors"
	"silver-social-backend/internal/models"
)

// UserRepository implements services.UserStore
type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; ok {
		return apperrors.Conflict(nil, "user %s already exists", user.ID)
	}
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return apperrors.Conflict(nil, "email already registered")
		}
	}
	r.s.users[user.ID] = copyUser(user)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	return copyUser(u), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

func (r *UserRepository) GetMany(_ context.Context, ids []string) (map[string]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out[id] = copyUser(u)
		}
	}
	return out, nil
}

func (r *UserRepository) UpdateProfile(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[user.ID]
	if !ok {
		return apperrors.NotFound("user not found")
	}
	u.DisplayName = user.DisplayName
	u.Gender = user.Gender
	u.AgeGroup = user.AgeGroup
	u.City = user.City
	u.Interests = user.Interests
	u.Bio = user.Bio
	u.AvatarURL = user.AvatarURL
	u.GalleryURLs = append([]string{}, user.GalleryURLs...)
	u.UpdatedAt = user.UpdatedAt
	return nil
}

func (r *UserRepository) UpdatePushToken(_ context.Context, userID string, pushToken *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return apperrors.NotFound("user not found")
	}
	if pushToken == nil {
		u.PushToken = nil
		return nil
	}
	t := *pushToken
	u.PushToken = &t
	return nil
}

func (r *UserRepository) ListDiscoverable(_ context.Context, viewerID string, limit int) ([]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.User
	for id, u := range r.s.users {
		if id == viewerID {
			continue
		}
		if _, liked := r.s.likes[pairKey{viewerID, id}]; liked {
			continue
		}
		out = append(out, copyUser(u))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
