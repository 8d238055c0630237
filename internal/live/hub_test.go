package live

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silver-social-backend/internal/models"
)

// newTestServer upgrades /?user=<id> and registers the connection with hub.
// Events sent by the client are recorded in received.
func newTestServer(t *testing.T, hub *Hub, received chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(userID, conn)
		defer hub.Unregister(userID, conn)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if received != nil {
				received <- string(data)
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, userID string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + userID
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(NewLocalBroker())
	require.NoError(t, hub.Start(ctx))
	t.Cleanup(hub.Close)
	return hub
}

func dialUser(t *testing.T, hub *Hub, srv *httptest.Server, userID string) *Conn {
	t.Helper()
	conn, err := Dial(context.Background(), wsURL(srv, userID), "token")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.IsOnline(userID) }, time.Second, 10*time.Millisecond)
	return conn
}

func nextEvent(t *testing.T, conn *Conn) Event {
	t.Helper()
	select {
	case ev, ok := <-conn.Events():
		require.True(t, ok, "connection closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHubPublishReachesConnectedUser(t *testing.T) {
	hub := startHub(t)
	srv := newTestServer(t, hub, nil)
	conn := dialUser(t, hub, srv, "u2")

	msg := &models.Message{ID: "m1", Seq: 1, SenderID: "u1", ReceiverID: "u2", Content: "hi", CreatedAt: time.Now()}
	require.NoError(t, hub.Publish(context.Background(), "u2", NotifyMessageEvent(msg)))

	ev := nextEvent(t, conn)
	assert.Equal(t, EventNotifyMessage, ev.Type)
	assert.Equal(t, "u1", ev.From)
	assert.Equal(t, "hi", ev.Content)
	assert.Equal(t, "m1", ev.MessageID)
}

func TestHubPublishToOfflineUserIsDropped(t *testing.T) {
	hub := startHub(t)

	assert.False(t, hub.IsOnline("nobody"))
	assert.NoError(t, hub.Publish(context.Background(), "nobody", ErrorEvent("x")))
	assert.Error(t, hub.SendToUser("nobody", ErrorEvent("x")))
}

func TestHubNewerConnectionReplacesOlder(t *testing.T) {
	hub := startHub(t)
	srv := newTestServer(t, hub, nil)

	first := dialUser(t, hub, srv, "u1")
	second := dialUser(t, hub, srv, "u1")

	select {
	case <-first.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("older connection was not closed")
	}

	require.NoError(t, hub.Publish(context.Background(), "u1", ErrorEvent("still here")))
	assert.Equal(t, "still here", nextEvent(t, second).Message)
	assert.True(t, hub.IsOnline("u1"))
}

func TestHubSendToConnSkipsReplacedConnection(t *testing.T) {
	hub := startHub(t)
	serverConns := make(chan *websocket.Conn, 2)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register("u1", conn)
		defer hub.Unregister("u1", conn)
		serverConns <- conn
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	dialUser(t, hub, srv, "u1")
	older := <-serverConns
	second := dialUser(t, hub, srv, "u1")
	newer := <-serverConns

	assert.Error(t, hub.SendToConn("u1", older, ErrorEvent("for the old tab")))
	require.NoError(t, hub.SendToConn("u1", newer, ErrorEvent("for the new tab")))

	assert.Equal(t, "for the new tab", nextEvent(t, second).Message)
}

func TestConnSendAndClose(t *testing.T) {
	hub := startHub(t)
	received := make(chan string, 1)
	srv := newTestServer(t, hub, received)
	conn := dialUser(t, hub, srv, "u1")

	require.NoError(t, conn.Send(ReadChatEvent("u2")))
	select {
	case data := <-received:
		assert.Contains(t, data, `"type":"read-chat"`)
		assert.Contains(t, data, `"other":"u2"`)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive event")
	}

	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Send(ReadChatEvent("u2")), ErrClosed)
	require.Eventually(t, func() bool { return !hub.IsOnline("u1") }, time.Second, 10*time.Millisecond)
}

func TestChatListSessionAppliesNotifications(t *testing.T) {
	hub := startHub(t)
	srv := newTestServer(t, hub, nil)
	conn := dialUser(t, hub, srv, "me")

	older := time.Now().Add(-time.Hour)
	var refreshes atomic.Int32
	refresh := func(ctx context.Context) ([]models.ChatPartner, error) {
		refreshes.Add(1)
		return []models.ChatPartner{
			{ID: "a", LastTime: &older, LastSeq: 1},
			{ID: "b"},
		}, nil
	}

	session := NewChatListSession(conn, refresh, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	require.Eventually(t, func() bool { return refreshes.Load() == 1 }, time.Second, 10*time.Millisecond)

	msg := &models.Message{ID: "m5", Seq: 5, SenderID: "b", ReceiverID: "me", Content: "hello", CreatedAt: time.Now()}
	require.NoError(t, hub.Publish(ctx, "me", NotifyMessageEvent(msg)))

	require.Eventually(t, func() bool {
		entries := session.View().Entries()
		return len(entries) == 2 && entries[0].ID == "b" && entries[0].UnreadCount == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), refreshes.Load())

	stranger := &models.Message{ID: "m6", Seq: 6, SenderID: "new", ReceiverID: "me", Content: "hey", CreatedAt: time.Now()}
	require.NoError(t, hub.Publish(ctx, "me", NotifyMessageEvent(stranger)))
	require.Eventually(t, func() bool { return refreshes.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
}

func TestChatListSessionSurvivesFailedRefresh(t *testing.T) {
	hub := startHub(t)
	srv := newTestServer(t, hub, nil)
	conn := dialUser(t, hub, srv, "me")

	var refreshes atomic.Int32
	refresh := func(ctx context.Context) ([]models.ChatPartner, error) {
		if refreshes.Add(1) == 2 {
			return nil, errors.New("connection reset")
		}
		return []models.ChatPartner{{ID: "a"}}, nil
	}

	session := NewChatListSession(conn, refresh, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	require.Eventually(t, func() bool { return refreshes.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("session stopped after a failed refresh: %v", err)
	default:
	}
	assert.Len(t, session.View().Entries(), 1)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
}

func TestChatListSessionInitialLoadFailureStops(t *testing.T) {
	hub := startHub(t)
	srv := newTestServer(t, hub, nil)
	conn := dialUser(t, hub, srv, "me")

	session := NewChatListSession(conn, func(ctx context.Context) ([]models.ChatPartner, error) {
		return nil, errors.New("unauthorized")
	}, 50*time.Millisecond)

	assert.Error(t, session.Run(context.Background()))
}

func TestHTTPRefresher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" || r.URL.Path != "/api/v1/chats" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chats":[{"id":"u2","displayName":"B","unreadCount":2,"source":"MATCH","tagText":"交友配對"}]}`))
	}))
	defer srv.Close()

	list, err := HTTPRefresher(srv.Client(), srv.URL, "tok")(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u2", list[0].ID)
	assert.Equal(t, 2, list[0].UnreadCount)

	_, err = HTTPRefresher(srv.Client(), srv.URL, "bad")(context.Background())
	assert.Error(t, err)
}
