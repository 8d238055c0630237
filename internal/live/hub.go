package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages WebSocket connections, one per user
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	broker  Broker
}

// NewHub creates a new WebSocket hub publishing through broker
func NewHub(broker Broker) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		broker:  broker,
	}
}

// Start subscribes the hub to the broker so published events reach local connections
func (h *Hub) Start(ctx context.Context) error {
	if err := h.broker.Subscribe(ctx, h.deliver); err != nil {
		return fmt.Errorf("failed to subscribe hub: %w", err)
	}
	return nil
}

// Register registers a new WebSocket connection for a user, closing any older one
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.clients[userID]; ok {
		existing.conn.Close()
	}
	h.clients[userID] = &client{conn: conn}

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes conn for a user. A newer connection for the same user is left alone.
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[userID]; ok && c.conn == conn {
		delete(h.clients, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
	conn.Close()
}

// IsOnline checks if a user has a connection on this instance
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// Publish hands an event to the broker; every instance holding the user's connection delivers it
func (h *Hub) Publish(ctx context.Context, userID string, event Event) error {
	return h.broker.Publish(ctx, Envelope{UserID: userID, Event: event})
}

// SendToUser writes an event to the user's local connection
func (h *Hub) SendToUser(userID string, event Event) error {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user %s is not connected", userID)
	}
	return h.send(userID, c, event)
}

// SendToConn writes an event to conn only while it is the user's registered connection
func (h *Hub) SendToConn(userID string, conn *websocket.Conn, event Event) error {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok || c.conn != conn {
		return fmt.Errorf("connection for user %s is no longer registered", userID)
	}
	return h.send(userID, c, event)
}

func (h *Hub) send(userID string, c *client, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := c.write(data); err != nil {
		h.Unregister(userID, c.conn)
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}

func (h *Hub) deliver(env Envelope) {
	if !h.IsOnline(env.UserID) {
		return
	}
	if err := h.SendToUser(env.UserID, env.Event); err != nil {
		log.Warn().Err(err).Str("user_id", env.UserID).Str("type", env.Event.Type).Msg("Dropped live event")
	}
}

// Close closes every connection
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, c := range h.clients {
		c.conn.Close()
		delete(h.clients, userID)
	}
}
