// Package chatview builds and maintains a user's chat list: the keyed merge of
// counterparts from every relationship source, the list ordering, and the rule
// for folding live notifications into an already rendered list.
package chatview

import (
	"sort"
	"time"

	"silver-social-backend/internal/models"
)

// Candidate is one counterpart reported by a relationship source
type Candidate struct {
	UserID    string
	Source    models.MessageSource
	LinkedAt  time.Time
	MatchedAt time.Time // zero unless the pair has a match
}

// Merge unions candidate sequences keyed by counterpart id. A later sequence
// overwrites the source of an earlier one; LinkedAt and MatchedAt keep the most
// recent value.
// The result preserves first-appearance order.
func Merge(sources ...[]Candidate) []Candidate {
	index := make(map[string]int)
	var merged []Candidate

	for _, seq := range sources {
		for _, c := range seq {
			if c.UserID == "" {
				continue
			}
			i, ok := index[c.UserID]
			if !ok {
				index[c.UserID] = len(merged)
				merged = append(merged, c)
				continue
			}
			merged[i].Source = c.Source
			if c.LinkedAt.After(merged[i].LinkedAt) {
				merged[i].LinkedAt = c.LinkedAt
			}
			if c.MatchedAt.After(merged[i].MatchedAt) {
				merged[i].MatchedAt = c.MatchedAt
			}
		}
	}

	return merged
}

// Sort orders a chat list in place: partners with messages first, newest
// message first (insertion order breaks equal timestamps); partners without
// messages after them, most recently linked first, then by id.
func Sort(list []models.ChatPartner) {
	sort.SliceStable(list, func(i, j int) bool {
		return less(&list[i], &list[j])
	})
}

func less(a, b *models.ChatPartner) bool {
	if a.HasMessages() != b.HasMessages() {
		return a.HasMessages()
	}
	if a.HasMessages() {
		if !a.LastTime.Equal(*b.LastTime) {
			return a.LastTime.After(*b.LastTime)
		}
		if a.LastSeq != b.LastSeq {
			return a.LastSeq > b.LastSeq
		}
		return a.ID < b.ID
	}
	if !a.LinkedAt.Equal(b.LinkedAt) {
		return a.LinkedAt.After(b.LinkedAt)
	}
	return a.ID < b.ID
}
