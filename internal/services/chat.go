package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"silver-social-backend/internal/apperrors"
	"silver-social-backend/internal/chatview"
	"silver-social-backend/internal/live"
	"silver-social-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	maxMessageLength   = 2000
	defaultHistorySize = 200
	maxHistorySize     = 500
)

// ChatService handles direct messages, read markers and the chat list
type ChatService struct {
	users     UserStore
	matches   MatchStore
	messages  MessageStore
	reads     ReadMarkerStore
	publisher Publisher
	notifier  Notifier
	now       func() time.Time
}

// NewChatService creates a new chat service
func NewChatService(users UserStore, matches MatchStore, messages MessageStore, reads ReadMarkerStore, publisher Publisher, notifier Notifier) *ChatService {
	return &ChatService{
		users:     users,
		matches:   matches,
		messages:  messages,
		reads:     reads,
		publisher: publisher,
		notifier:  notifier,
		now:       time.Now,
	}
}

// SendMessageRequest is the body of POST /messages and of the send-message event
type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" validate:"required"`
	Content    string `json:"content" validate:"required"`
	Source     string `json:"source"`
}

// SendMessage stores a message and pushes it to both sides
func (s *ChatService) SendMessage(ctx context.Context, senderID string, req SendMessageRequest) (*models.Message, error) {
	if senderID == "" {
		return nil, apperrors.Authentication("login required")
	}

	receiverID := strings.TrimSpace(req.ReceiverID)
	if receiverID == "" {
		return nil, apperrors.Validation("receiverId is required")
	}
	if receiverID == senderID {
		return nil, apperrors.Validation("cannot message yourself")
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperrors.Validation("content is required")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, apperrors.Validation("content must be at most %d characters", maxMessageLength)
	}

	var source *models.MessageSource
	if raw := strings.TrimSpace(req.Source); raw != "" {
		src := models.MessageSource(strings.ToUpper(raw))
		if !src.Valid() {
			return nil, apperrors.Validation("unknown source: %s", raw)
		}
		source = src.Ptr()
	}

	receiver, err := s.users.GetByID(ctx, receiverID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("receiver not found")
		}
		return nil, fmt.Errorf("failed to get receiver: %w", err)
	}
	if receiver.ID == senderID {
		return nil, apperrors.Validation("cannot message yourself")
	}

	msg := &models.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiver.ID,
		Content:    content,
		Source:     source,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	log.Info().
		Str("message_id", msg.ID).
		Str("sender_id", senderID).
		Str("receiver_id", receiver.ID).
		Str("source", string(models.SourceOf(source))).
		Msg("Message sent")

	s.deliver(ctx, msg, receiver)

	return msg, nil
}

// deliver pushes a stored message. Failures only lose the live copy.
func (s *ChatService) deliver(ctx context.Context, msg *models.Message, receiver *models.User) {
	newMessage := live.NewMessageEvent(msg)
	for _, userID := range []string{msg.SenderID, msg.ReceiverID} {
		if err := s.publisher.Publish(ctx, userID, newMessage); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to publish new message")
		}
	}
	if err := s.publisher.Publish(ctx, msg.ReceiverID, live.NotifyMessageEvent(msg)); err != nil {
		log.Error().Err(err).Str("user_id", msg.ReceiverID).Msg("Failed to publish chat list notification")
	}

	if s.publisher.IsOnline(msg.ReceiverID) {
		return
	}

	senderName := "新訊息"
	if sender, err := s.users.GetByID(ctx, msg.SenderID); err == nil {
		senderName = sender.DisplayName
	}
	alert := Alert{
		Title: senderName,
		Body:  msg.Content,
		Data: map[string]string{
			"type":      live.EventNewMessage,
			"from":      msg.SenderID,
			"messageId": msg.ID,
		},
	}
	if err := s.notifier.Notify(ctx, receiver, alert); err != nil {
		log.Warn().Err(err).Str("user_id", receiver.ID).Msg("Failed to push message notification")
	}
}

// Conversation is the history of one chat
type Conversation struct {
	Other    *models.User      `json:"other"`
	Messages []*models.Message `json:"messages"`
}

// History returns the most recent messages with otherID and marks the chat read
func (s *ChatService) History(ctx context.Context, userID, otherID string, limit int) (*Conversation, error) {
	if userID == "" {
		return nil, apperrors.Authentication("login required")
	}
	otherID = strings.TrimSpace(otherID)
	if otherID == "" {
		return nil, apperrors.Validation("user is required")
	}
	if limit <= 0 {
		limit = defaultHistorySize
	}
	if limit > maxHistorySize {
		limit = maxHistorySize
	}

	other, err := s.users.GetByID(ctx, otherID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messages.ListConversation(ctx, userID, otherID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	if err := s.MarkRead(ctx, userID, otherID); err != nil {
		return nil, err
	}

	return &Conversation{Other: other, Messages: messages}, nil
}

// MarkRead moves the read cutoff for the conversation to now
func (s *ChatService) MarkRead(ctx context.Context, userID, otherID string) error {
	if userID == "" {
		return apperrors.Authentication("login required")
	}
	otherID = strings.TrimSpace(otherID)
	if otherID == "" || otherID == userID {
		return apperrors.Validation("invalid counterpart")
	}

	if err := s.reads.MarkRead(ctx, userID, otherID, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to mark chat read: %w", err)
	}
	return nil
}

// ListChatPartners returns one entry per counterpart reached through a match
// or through card or trip activity messages, newest conversation first.
func (s *ChatService) ListChatPartners(ctx context.Context, userID string) ([]models.ChatPartner, error) {
	if userID == "" {
		return nil, apperrors.Authentication("login required")
	}

	matched, err := s.matchCandidates(ctx, userID)
	if err != nil {
		return nil, err
	}
	card, err := s.messageCandidates(ctx, userID, models.SourceActivityCard)
	if err != nil {
		return nil, err
	}
	trip, err := s.messageCandidates(ctx, userID, models.SourceActivityTrip)
	if err != nil {
		return nil, err
	}

	candidates := chatview.Merge(matched, card, trip)
	if len(candidates) == 0 {
		return []models.ChatPartner{}, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.UserID
	}
	profiles, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat partners: %w", err)
	}

	list := make([]models.ChatPartner, 0, len(candidates))
	for _, c := range candidates {
		profile, ok := profiles[c.UserID]
		if !ok {
			log.Warn().Str("user_id", c.UserID).Msg("Chat partner has no profile")
			continue
		}

		entry, err := s.buildEntry(ctx, userID, c, profile)
		if err != nil {
			return nil, err
		}
		list = append(list, entry)
	}

	chatview.Sort(list)
	return list, nil
}

func (s *ChatService) matchCandidates(ctx context.Context, userID string) ([]chatview.Candidate, error) {
	matches, err := s.matches.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	out := make([]chatview.Candidate, 0, len(matches))
	for _, m := range matches {
		out = append(out, chatview.Candidate{
			UserID:    m.OtherUserID(userID),
			Source:    models.SourceMatch,
			LinkedAt:  m.CreatedAt,
			MatchedAt: m.CreatedAt,
		})
	}
	return out, nil
}

func (s *ChatService) messageCandidates(ctx context.Context, userID string, source models.MessageSource) ([]chatview.Candidate, error) {
	counterparts, err := s.messages.Counterparts(ctx, userID, source)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s counterparts: %w", source, err)
	}

	out := make([]chatview.Candidate, 0, len(counterparts))
	for _, cp := range counterparts {
		out = append(out, chatview.Candidate{
			UserID:   cp.UserID,
			Source:   source,
			LinkedAt: cp.LastSeen,
		})
	}
	return out, nil
}

func (s *ChatService) buildEntry(ctx context.Context, userID string, c chatview.Candidate, profile *models.User) (models.ChatPartner, error) {
	entry := models.ChatPartner{
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		Source:      c.Source,
		LinkedAt:    c.LinkedAt,
	}
	if profile.AvatarURL != "" {
		avatar := profile.AvatarURL
		entry.AvatarURL = &avatar
	}

	latest, err := s.messages.Latest(ctx, userID, c.UserID)
	switch {
	case err == nil:
		content := latest.Content
		at := latest.CreatedAt
		entry.LastMessage = &content
		entry.LastMessageID = latest.ID
		entry.LastTime = &at
		entry.LastSeq = latest.Seq
		entry.Source = models.SourceOf(latest.Source)
		// a match formed after the last message retags the chat
		if c.MatchedAt.After(latest.CreatedAt) {
			entry.Source = models.SourceMatch
		}
	case errors.Is(err, apperrors.ErrNotFound):
		entry.Source = models.SourceMatch
	default:
		return entry, fmt.Errorf("failed to get latest message: %w", err)
	}
	entry.TagText = entry.Source.TagText()

	if entry.HasMessages() {
		since, err := s.reads.LastRead(ctx, userID, c.UserID)
		if err != nil {
			return entry, fmt.Errorf("failed to get read marker: %w", err)
		}
		unread, err := s.messages.CountUnread(ctx, userID, c.UserID, since)
		if err != nil {
			return entry, fmt.Errorf("failed to count unread messages: %w", err)
		}
		entry.UnreadCount = unread
	}

	return entry, nil
}
