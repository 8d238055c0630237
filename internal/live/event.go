// Package live carries real-time chat events between the server and connected clients.
package live

import (
	"time"

	"silver-social-backend/internal/models"
)

// Event types
const (
	EventNewMessage    = "new-message"
	EventNotifyMessage = "notify-message"
	EventMatchCreated  = "match-created"
	EventError         = "error"

	// client to server
	EventReadChat    = "read-chat"
	EventSendMessage = "send-message"
)

// Event is the websocket envelope in both directions
type Event struct {
	Type      string        `json:"type"`
	MessageID string        `json:"messageId,omitempty"`
	Seq       int64         `json:"seq,omitempty"`
	From      string        `json:"from,omitempty"`
	To        string        `json:"to,omitempty"`
	Other     string        `json:"other,omitempty"`
	Content   string        `json:"content,omitempty"`
	Source    string        `json:"source,omitempty"`
	CreatedAt *time.Time    `json:"createdAt,omitempty"`
	Match     *models.Match `json:"match,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// Envelope addresses an event to a single user
type Envelope struct {
	UserID string `json:"userId"`
	Event  Event  `json:"event"`
}

func messageEvent(eventType string, msg *models.Message) Event {
	createdAt := msg.CreatedAt
	ev := Event{
		Type:      eventType,
		MessageID: msg.ID,
		Seq:       msg.Seq,
		From:      msg.SenderID,
		To:        msg.ReceiverID,
		Content:   msg.Content,
		CreatedAt: &createdAt,
	}
	if msg.Source != nil {
		ev.Source = string(*msg.Source)
	}
	return ev
}

// NewMessageEvent is sent to both sides of a conversation
func NewMessageEvent(msg *models.Message) Event {
	return messageEvent(EventNewMessage, msg)
}

// NotifyMessageEvent is sent to the receiver's chat list
func NotifyMessageEvent(msg *models.Message) Event {
	return messageEvent(EventNotifyMessage, msg)
}

// MatchCreatedEvent is sent to both users of a new match
func MatchCreatedEvent(match *models.Match) Event {
	return Event{Type: EventMatchCreated, Match: match}
}

// ErrorEvent reports a failed client request
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

// ReadChatEvent asks the server to mark a conversation read
func ReadChatEvent(otherID string) Event {
	return Event{Type: EventReadChat, Other: otherID}
}

// SendMessageEvent asks the server to deliver a message
func SendMessageEvent(to, content string, source models.MessageSource) Event {
	return Event{Type: EventSendMessage, To: to, Content: content, Source: string(source)}
}
