// Package memory is an in-process implementation of the store contracts.
// It enforces the same uniqueness rules as the Postgres schema.
package memory

import (
	"sync"
	"time"

	"silver-social-backend/internal/models"
)

type pairKey struct {
	a, b string
}

type membership map[string]time.Time

// Store holds every table behind one lock
type Store struct {
	mu sync.RWMutex

	users        map[string]*models.User
	likes        map[pairKey]models.Like
	matches      map[pairKey]*models.Match
	messages     []*models.Message
	seq          int64
	reads        map[pairKey]time.Time
	activities   map[string]*models.Activity
	participants map[string]membership
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:        make(map[string]*models.User),
		likes:        make(map[pairKey]models.Like),
		matches:      make(map[pairKey]*models.Match),
		reads:        make(map[pairKey]time.Time),
		activities:   make(map[string]*models.Activity),
		participants: make(map[string]membership),
	}
}

func (s *Store) Users() *UserRepository { return &UserRepository{s} }
func (s *Store) Likes() *LikeRepository { return &LikeRepository{s} }
func (s *Store) Matches() *MatchRepository { return &MatchRepository{s} }
func (s *Store) Messages() *MessageRepository { return &MessageRepository{s} }
func (s *Store) ReadMarkers() *ReadMarkerRepository { return &ReadMarkerRepository{s} }
func (s *Store) Activities() *ActivityRepository { return &ActivityRepository{s} }

func copyUser(u *models.User) *models.User {
	c := *u
	c.GalleryURLs = append([]string{}, u.GalleryURLs...)
	if u.PushToken != nil {
		t := *u.PushToken
		c.PushToken = &t
	}
	return &c
}

func copyMessage(m *models.Message) *models.Message {
	c := *m
	if m.Source != nil {
		c.Source = m.Source.Ptr()
	}
	return &c
}
