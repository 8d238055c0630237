package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"silver-social-backend/internal/live"
	"silver-social-backend/internal/models"
	"silver-social-backend/internal/repository/memory"
	"silver-social-backend/internal/services"
)

type published struct {
	userID string
	event  live.Event
}

type fakePublisher struct {
	mu     sync.Mutex
	online map[string]bool
	events []published
}

func newFakePublisher(online ...string) *fakePublisher {
	p := &fakePublisher{online: make(map[string]bool)}
	for _, id := range online {
		p.online[id] = true
	}
	return p
}

func (p *fakePublisher) Publish(_ context.Context, userID string, event live.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{userID: userID, event: event})
	return nil
}

func (p *fakePublisher) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

func (p *fakePublisher) eventsFor(userID, eventType string) []live.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []live.Event
	for _, e := range p.events {
		if e.userID == userID && e.event.Type == eventType {
			out = append(out, e.event)
		}
	}
	return out
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts map[string][]services.Alert
}

func (n *fakeNotifier) Notify(_ context.Context, user *models.User, alert services.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.alerts == nil {
		n.alerts = make(map[string][]services.Alert)
	}
	n.alerts[user.ID] = append(n.alerts[user.ID], alert)
	return nil
}

func (n *fakeNotifier) count(userID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts[userID])
}

// clock is a manually advanced time source
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	store      *memory.Store
	clock      *clock
	publisher  *fakePublisher
	notifier   *fakeNotifier
	users      *services.UserService
	matches    *services.MatchService
	chats      *services.ChatService
	activities *services.ActivityService
}

func newTestEnv(t *testing.T, online ...string) *testEnv {
	t.Helper()

	store := memory.New()
	env := &testEnv{
		store:     store,
		clock:     newClock(),
		publisher: newFakePublisher(online...),
		notifier:  &fakeNotifier{},
	}

	env.users = services.NewUserService(store.Users(), "test-secret", time.Hour)
	env.users.SetHashCost(bcrypt.MinCost)

	env.matches = services.NewMatchService(store.Likes(), store.Matches(), store.Users(), env.publisher, env.notifier)
	env.matches.SetClock(env.clock.Now)

	env.chats = services.NewChatService(store.Users(), store.Matches(), store.Messages(), store.ReadMarkers(), env.publisher, env.notifier)
	env.chats.SetClock(env.clock.Now)

	env.activities = services.NewActivityService(store.Activities(), store.Users())
	env.activities.SetClock(env.clock.Now)

	return env
}

// addUser inserts a user with a fixed id
func (e *testEnv) addUser(t *testing.T, id, name string) *models.User {
	t.Helper()
	u := &models.User{
		ID:          id,
		Email:       id + "@example.com",
		DisplayName: name,
		GalleryURLs: []string{},
		CreatedAt:   e.clock.Now(),
		UpdatedAt:   e.clock.Now(),
	}
	require.NoError(t, e.store.Users().Create(context.Background(), u))
	return u
}

// send advances the clock by a second and sends a message
func (e *testEnv) send(t *testing.T, from, to, content string, source models.MessageSource) *models.Message {
	t.Helper()
	e.clock.Advance(time.Second)
	msg, err := e.chats.SendMessage(context.Background(), from, services.SendMessageRequest{
		ReceiverID: to,
		Content:    content,
		Source:     string(source),
	})
	require.NoError(t, err)
	return msg
}

func (e *testEnv) like(t *testing.T, from, to string) *services.LikeResult {
	t.Helper()
	e.clock.Advance(time.Second)
	res, err := e.matches.RecordLike(context.Background(), from, to)
	require.NoError(t, err)
	return res
}

func findPartner(list []models.ChatPartner, id string) *models.ChatPartner {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}
