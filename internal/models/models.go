package models

import "time"

// User represents a registered member
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName"`
	Gender       string    `json:"gender,omitempty"`
	AgeGroup     string    `json:"ageGroup,omitempty"`
	City         string    `json:"city,omitempty"`
	Interests    string    `json:"interests,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	GalleryURLs  []string  `json:"galleryUrls"`
	PushToken    *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Onboarded reports whether every field required by onboarding is filled in
func (u *User) Onboarded() bool {
	return u.DisplayName != "" && u.Gender != "" && u.AgeGroup != "" &&
		u.City != "" && u.Interests != "" && u.Bio != "" && u.AvatarURL != ""
}

// Like is a directed expression of interest
type Like struct {
	LikerID   string    `json:"likerId"`
	LikedID   string    `json:"likedId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Match represents mutual interest between two users.
// UserAID is always the lexicographically smaller id.
type Match struct {
	ID        string    `json:"id"`
	UserAID   string    `json:"userAId"`
	UserBID   string    `json:"userBId"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMatchPair orders two user ids into the (a, b) key used for matches
func NewMatchPair(x, y string) (string, string) {
	if x > y {
		return y, x
	}
	return x, y
}

// OtherUserID returns the counterpart of userID, or "" if userID is not in the match
func (m *Match) OtherUserID(userID string) string {
	switch userID {
	case m.UserAID:
		return m.UserBID
	case m.UserBID:
		return m.UserAID
	}
	return ""
}

// Message is a direct message between two users
type Message struct {
	ID         string         `json:"id"`
	Seq        int64          `json:"seq"`
	SenderID   string         `json:"senderId"`
	ReceiverID string         `json:"receiverId"`
	Content    string         `json:"content"`
	Source     *MessageSource `json:"source"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// CounterpartOf returns the other side of the message relative to userID
func (m *Message) CounterpartOf(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Activity is a scheduled group event users can join
type Activity struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	Date         time.Time        `json:"date"`
	Location     string           `json:"location"`
	Capacity     *int             `json:"capacity"`
	Category     ActivityCategory `json:"category"`
	CreatorID    string           `json:"creatorId"`
	CreatorName  string           `json:"creatorName"`
	ContactPhone string           `json:"creatorPhone"`
	CreatedAt    time.Time        `json:"createdAt"`

	// Viewer-relative fields, filled in by queries
	Joined      bool `json:"joined"`
	JoinedCount int  `json:"joinedCount"`
}

// Full reports whether no seat is left
func (a *Activity) Full() bool {
	return a.Capacity != nil && a.JoinedCount >= *a.Capacity
}

// ChatPartner is one row of a user's chat list. It is derived, never stored.
type ChatPartner struct {
	ID            string        `json:"id"`
	DisplayName   string        `json:"displayName"`
	Email         string        `json:"email,omitempty"`
	AvatarURL     *string       `json:"avatarUrl"`
	LastMessage   *string       `json:"lastMessage"`
	LastMessageID string        `json:"lastMessageId,omitempty"`
	LastTime      *time.Time    `json:"lastTime"`
	UnreadCount   int           `json:"unreadCount"`
	Source        MessageSource `json:"source"`
	TagText       string        `json:"tagText"`

	// Ordering keys, shipped so clients can re-sort the same way
	LastSeq  int64     `json:"lastSeq,omitempty"`
	LinkedAt time.Time `json:"linkedAt"`
}

// HasMessages reports whether the pair has exchanged at least one message
func (p *ChatPartner) HasMessages() bool {
	return p.LastTime != nil
}
