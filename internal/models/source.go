package models

import "strings"

// MessageSource tags where a conversation came from
type MessageSource string

const (
	SourceMatch        MessageSource = "MATCH"
	SourceActivityCard MessageSource = "ACTIVITY_CARD"
	SourceActivityTrip MessageSource = "ACTIVITY_TRIP"
)

// Valid reports whether s is one of the known sources
func (s MessageSource) Valid() bool {
	switch s {
	case SourceMatch, SourceActivityCard, SourceActivityTrip:
		return true
	}
	return false
}

// TagText is the label shown next to a chat partner's name
func (s MessageSource) TagText() string {
	switch s {
	case SourceActivityCard:
		return "牌咖"
	case SourceActivityTrip:
		return "玩伴旅伴"
	default:
		return "交友配對"
	}
}

// Ptr returns a pointer to a copy of s
func (s MessageSource) Ptr() *MessageSource {
	return &s
}

// SourceOf dereferences a nullable source, falling back to SourceMatch
func SourceOf(s *MessageSource) MessageSource {
	if s == nil || !s.Valid() {
		return SourceMatch
	}
	return *s
}

// ActivityCategory is the kind of meetup an activity offers
type ActivityCategory string

const (
	CategoryCard ActivityCategory = "CARD"
	CategoryTrip ActivityCategory = "TRIP"
)

// ParseCategory accepts the canonical names and the labels the web client uses
func ParseCategory(s string) (ActivityCategory, bool) {
	switch strings.TrimSpace(s) {
	case "CARD", "card", "找牌咖", "牌咖":
		return CategoryCard, true
	case "TRIP", "trip", "旅遊/玩伴", "玩伴旅伴":
		return CategoryTrip, true
	}
	return "", false
}

// MessageSource is the source tag for conversations started from this category
func (c ActivityCategory) MessageSource() MessageSource {
	if c == CategoryTrip {
		return SourceActivityTrip
	}
	return SourceActivityCard
}
