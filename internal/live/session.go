package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"silver-social-backend/internal/chatview"
	"silver-social-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// RefreshFunc fetches the full chat list from the durable store
type RefreshFunc func(ctx context.Context) ([]models.ChatPartner, error)

// ChatListSession keeps a chat list view current from a live connection.
// Missed notifications are repaired by the periodic refresh.
type ChatListSession struct {
	conn     *Conn
	view     *chatview.View
	refresh  RefreshFunc
	interval time.Duration
	onChange func([]models.ChatPartner)
}

// NewChatListSession binds an open connection to a view
func NewChatListSession(conn *Conn, refresh RefreshFunc, interval time.Duration) *ChatListSession {
	return &ChatListSession{
		conn:     conn,
		view:     chatview.NewView(),
		refresh:  refresh,
		interval: interval,
	}
}

// OnChange registers a callback invoked with a snapshot after every update
func (s *ChatListSession) OnChange(fn func([]models.ChatPartner)) {
	s.onChange = fn
}

// View exposes the maintained list
func (s *ChatListSession) View() *chatview.View {
	return s.view
}

// OpenChat marks a conversation read on the server and in the view
func (s *ChatListSession) OpenChat(counterpartID string) error {
	if err := s.conn.Send(ReadChatEvent(counterpartID)); err != nil {
		return err
	}
	s.view.MarkRead(counterpartID)
	s.changed()
	return nil
}

// Run loads the list, then applies events until ctx is done or the connection ends.
// Only the initial load is fatal; later refresh failures keep the current view.
func (s *ChatListSession) Run(ctx context.Context) error {
	if err := s.reload(ctx); err != nil {
		return err
	}

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			if err := s.reload(ctx); err != nil {
				log.Warn().Err(err).Msg("Periodic chat list refresh failed")
			}
		case ev, ok := <-s.conn.Events():
			if !ok {
				return ErrClosed
			}
			if ev.Type != EventNotifyMessage {
				continue
			}
			if s.apply(ev) {
				if err := s.reload(ctx); err != nil {
					log.Warn().Err(err).Str("from", ev.From).Msg("Chat list refetch failed")
				}
			}
		}
	}
}

func (s *ChatListSession) apply(ev Event) (refetch bool) {
	in := chatview.Incoming{
		From:      ev.From,
		MessageID: ev.MessageID,
		Seq:       ev.Seq,
		Content:   ev.Content,
	}
	if ev.CreatedAt != nil {
		in.CreatedAt = *ev.CreatedAt
	}

	if s.view.Apply(in) {
		return true
	}
	s.changed()
	return false
}

func (s *ChatListSession) reload(ctx context.Context) error {
	list, err := s.refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh chat list: %w", err)
	}
	s.view.Replace(list)
	s.changed()
	return nil
}

func (s *ChatListSession) changed() {
	if s.onChange != nil {
		s.onChange(s.view.Entries())
	}
}

// HTTPRefresher fetches GET {baseURL}/api/v1/chats with a bearer token
func HTTPRefresher(client *http.Client, baseURL, token string) RefreshFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) ([]models.ChatPartner, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/chats", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}

		var body struct {
			Chats []models.ChatPartner `json:"chats"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("failed to decode chat list: %w", err)
		}
		return body.Chats, nil
	}
}
