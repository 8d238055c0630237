package memory

import (
	"context"
	"sort"
	"time"

	"silver-social-backend/internal/apperrors"
	"silver-social-backend/internal/models"
)

// ActivityRepository implements services.ActivityStore
type ActivityRepository struct {
	s *Store
}

func (r *ActivityRepository) Create(_ context.Context, activity *models.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.activities[activity.ID]; ok {
		return apperrors.Conflict(nil, "activity %s already exists", activity.ID)
	}
	a := *activity
	r.s.activities[a.ID] = &a
	r.s.participants[a.ID] = make(membership)
	return nil
}

// view copies an activity and fills the viewer-relative fields. Callers hold the lock.
func (r *ActivityRepository) view(a *models.Activity, viewerID string) *models.Activity {
	c := *a
	if a.Capacity != nil {
		capacity := *a.Capacity
		c.Capacity = &capacity
	}
	if creator, ok := r.s.users[a.CreatorID]; ok {
		c.CreatorName = creator.DisplayName
	}
	members := r.s.participants[a.ID]
	c.JoinedCount = len(members)
	_, c.Joined = members[viewerID]
	return &c
}

func (r *ActivityRepository) GetByID(_ context.Context, id, viewerID string) (*models.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.activities[id]
	if !ok {
		return nil, apperrors.NotFound("activity not found")
	}
	return r.view(a, viewerID), nil
}

func (r *ActivityRepository) List(_ context.Context, viewerID string) ([]*models.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Activity, 0, len(r.s.activities))
	for _, a := range r.s.activities {
		out = append(out, r.view(a, viewerID))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ActivityRepository) Join(_ context.Context, activityID, userID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.activities[activityID]
	if !ok {
		return apperrors.NotFound("activity not found")
	}
	members := r.s.participants[activityID]
	if _, ok := members[userID]; ok {
		return nil
	}
	if a.Capacity != nil && len(members) >= *a.Capacity {
		return apperrors.Conflict(nil, "activity is full")
	}
	members[userID] = at
	return nil
}

func (r *ActivityRepository) Leave(_ context.Context, activityID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.activities[activityID]; !ok {
		return apperrors.NotFound("activity not found")
	}
	delete(r.s.participants[activityID], userID)
	return nil
}

func (r *ActivityRepository) CountParticipants(_ context.Context, activityID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return len(r.s.participants[activityID]), nil
}
