package chatview

import (
	"sync"
	"time"

	"silver-social-backend/internal/models"
)

// Incoming is a new-message notification as seen by the receiver
type Incoming struct {
	From      string
	MessageID string
	Seq       int64
	Content   string
	CreatedAt time.Time
}

// View is a client-side copy of a chat list kept current by notifications
type View struct {
	mu      sync.Mutex
	entries []models.ChatPartner
}

// NewView creates an empty view
func NewView() *View {
	return &View{}
}

// Replace swaps in a freshly fetched list
func (v *View) Replace(list []models.ChatPartner) {
	entries := make([]models.ChatPartner, len(list))
	copy(entries, list)
	Sort(entries)

	v.mu.Lock()
	v.entries = entries
	v.mu.Unlock()
}

// Entries returns a snapshot of the current list
func (v *View) Entries() []models.ChatPartner {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]models.ChatPartner, len(v.entries))
	copy(out, v.entries)
	return out
}

// Apply folds a notification into the list. It returns true when the sender is
// not in the list; the caller must then re-fetch the whole list, since the
// notification lacks the profile and source needed for a complete entry.
// A repeated notification for the message already shown is ignored.
func (v *View) Apply(in Incoming) (refetch bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.entries {
		e := &v.entries[i]
		if e.ID != in.From {
			continue
		}
		if in.MessageID != "" && e.LastMessageID == in.MessageID {
			return false
		}

		content := in.Content
		at := in.CreatedAt
		e.LastMessage = &content
		e.LastMessageID = in.MessageID
		e.LastTime = &at
		e.LastSeq = in.Seq
		e.UnreadCount++

		Sort(v.entries)
		return false
	}

	return true
}

// MarkRead clears the unread count for a counterpart after its chat is opened
func (v *View) MarkRead(counterpartID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.entries {
		if v.entries[i].ID == counterpartID {
			v.entries[i].UnreadCount = 0
			return
		}
	}
}
