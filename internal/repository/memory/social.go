package memory

import (
	"context"
	"sort"
	"time"

	"silver-social-backend/internal/apperrors"
	"silver-social-backend/internal/models"
	"silver-social-backend/internal/services"
)

var (
	_ services.UserStore       = (*UserRepository)(nil)
	_ services.LikeStore       = (*LikeRepository)(nil)
	_ services.MatchStore      = (*MatchRepository)(nil)
	_ services.MessageStore    = (*MessageRepository)(nil)
	_ services.ReadMarkerStore = (*ReadMarkerRepository)(nil)
	_ services.ActivityStore   = (*ActivityRepository)(nil)
)

// LikeRepository implements services.LikeStore
type LikeRepository struct {
	s *Store
}

func (r *LikeRepository) Create(_ context.Context, like *models.Like) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := pairKey{like.LikerID, like.LikedID}
	if _, ok := r.s.likes[key]; ok {
		return false, nil
	}
	r.s.likes[key] = *like
	return true, nil
}

func (r *LikeRepository) Exists(_ context.Context, likerID, likedID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.likes[pairKey{likerID, likedID}]
	return ok, nil
}

// MatchRepository implements services.MatchStore
type MatchRepository struct {
	s *Store
}

func (r *MatchRepository) Create(_ context.Context, match *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, b := models.NewMatchPair(match.UserAID, match.UserBID)
	key := pairKey{a, b}
	if _, ok := r.s.matches[key]; ok {
		return apperrors.Conflict(nil, "match already exists")
	}
	m := *match
	m.UserAID, m.UserBID = a, b
	r.s.matches[key] = &m
	return nil
}

func (r *MatchRepository) GetByPair(_ context.Context, userAID, userBID string) (*models.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, b := models.NewMatchPair(userAID, userBID)
	m, ok := r.s.matches[pairKey{a, b}]
	if !ok {
		return nil, apperrors.NotFound("match not found")
	}
	c := *m
	return &c, nil
}

func (r *MatchRepository) ListByUser(_ context.Context, userID string) ([]*models.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.Match
	for _, m := range r.s.matches {
		if m.UserAID == userID || m.UserBID == userID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MessageRepository implements services.MessageStore
type MessageRepository struct {
	s *Store
}

func (r *MessageRepository) Create(_ context.Context, msg *models.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.seq++
	msg.Seq = r.s.seq
	r.s.messages = append(r.s.messages, copyMessage(msg))
	return nil
}

func between(m *models.Message, x, y string) bool {
	return (m.SenderID == x && m.ReceiverID == y) || (m.SenderID == y && m.ReceiverID == x)
}

// newer orders messages by time, then by insertion
func newer(a, b *models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Seq > b.Seq
}

func (r *MessageRepository) Latest(_ context.Context, userID, otherID string) (*models.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var latest *models.Message
	for _, m := range r.s.messages {
		if between(m, userID, otherID) && (latest == nil || newer(m, latest)) {
			latest = m
		}
	}
	if latest == nil {
		return nil, apperrors.NotFound("no messages")
	}
	return copyMessage(latest), nil
}

func (r *MessageRepository) Counterparts(_ context.Context, userID string, source models.MessageSource) ([]services.Counterpart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	lastSeen := make(map[string]time.Time)
	for _, m := range r.s.messages {
		if m.Source == nil || *m.Source != source {
			continue
		}
		if m.SenderID != userID && m.ReceiverID != userID {
			continue
		}
		other := m.CounterpartOf(userID)
		if m.CreatedAt.After(lastSeen[other]) {
			lastSeen[other] = m.CreatedAt
		}
	}

	out := make([]services.Counterpart, 0, len(lastSeen))
	for id, at := range lastSeen {
		out = append(out, services.Counterpart{UserID: id, LastSeen: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (r *MessageRepository) CountUnread(_ context.Context, userID, otherID string, since time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, m := range r.s.messages {
		if m.SenderID == otherID && m.ReceiverID == userID && m.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (r *MessageRepository) ListConversation(_ context.Context, userID, otherID string, limit int) ([]*models.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.Message
	for _, m := range r.s.messages {
		if between(m, userID, otherID) {
			out = append(out, copyMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[j], out[i]) })

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ReadMarkerRepository implements services.ReadMarkerStore
type ReadMarkerRepository struct {
	s *Store
}

func (r *ReadMarkerRepository) MarkRead(_ context.Context, userID, otherID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := pairKey{userID, otherID}
	if at.After(r.s.reads[key]) {
		r.s.reads[key] = at
	}
	return nil
}

func (r *ReadMarkerRepository) LastRead(_ context.Context, userID, otherID string) (time.Time, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.reads[pairKey{userID, otherID}], nil
}
