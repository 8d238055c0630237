package chatview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silver-social-backend/internal/models"
)

var base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestMergeDedupesByCounterpart(t *testing.T) {
	matches := []Candidate{
		{UserID: "x", Source: models.SourceMatch, LinkedAt: base},
		{UserID: "z", Source: models.SourceMatch, LinkedAt: base},
	}
	cards := []Candidate{
		{UserID: "y", Source: models.SourceActivityCard, LinkedAt: base.Add(time.Minute)},
		{UserID: "z", Source: models.SourceActivityCard, LinkedAt: base.Add(2 * time.Minute)},
	}
	trips := []Candidate{
		{UserID: "z", Source: models.SourceActivityTrip, LinkedAt: base.Add(-time.Hour)},
		{UserID: ""},
	}

	merged := Merge(matches, cards, trips)
	require.Len(t, merged, 3)

	assert.Equal(t, "x", merged[0].UserID)
	assert.Equal(t, "z", merged[1].UserID)
	assert.Equal(t, "y", merged[2].UserID)

	// last write wins on the source, most recent link time is kept
	assert.Equal(t, models.SourceActivityTrip, merged[1].Source)
	assert.Equal(t, base.Add(2*time.Minute), merged[1].LinkedAt)
}

func TestMergeKeepsMatchTime(t *testing.T) {
	matches := []Candidate{{UserID: "x", Source: models.SourceMatch, LinkedAt: base, MatchedAt: base}}
	cards := []Candidate{{UserID: "x", Source: models.SourceActivityCard, LinkedAt: base.Add(-time.Minute)}}

	merged := Merge(matches, cards)
	require.Len(t, merged, 1)
	assert.Equal(t, models.SourceActivityCard, merged[0].Source)
	assert.Equal(t, base, merged[0].MatchedAt)
	assert.Equal(t, base, merged[0].LinkedAt)
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge())
	assert.Empty(t, Merge(nil, nil, nil))
}

func partner(id string, last *time.Time, seq int64, linked time.Time) models.ChatPartner {
	return models.ChatPartner{ID: id, LastTime: last, LastSeq: seq, LinkedAt: linked}
}

func at(d time.Duration) *time.Time {
	t := base.Add(d)
	return &t
}

func ids(list []models.ChatPartner) []string {
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = p.ID
	}
	return out
}

func TestSortMessagesFirstNewestFirst(t *testing.T) {
	list := []models.ChatPartner{
		partner("silent", nil, 0, base.Add(time.Hour)),
		partner("t2", at(time.Minute), 2, base),
		partner("t1", at(time.Hour), 5, base),
	}

	Sort(list)
	assert.Equal(t, []string{"t1", "t2", "silent"}, ids(list))

	// stable across repeated calls with unchanged data
	Sort(list)
	assert.Equal(t, []string{"t1", "t2", "silent"}, ids(list))
}

func TestSortTieBreaks(t *testing.T) {
	list := []models.ChatPartner{
		partner("older-insert", at(0), 1, base),
		partner("b-silent", nil, 0, base),
		partner("newer-insert", at(0), 2, base),
		partner("a-silent", nil, 0, base),
		partner("recent-match", nil, 0, base.Add(time.Minute)),
	}

	Sort(list)
	assert.Equal(t, []string{"newer-insert", "older-insert", "recent-match", "a-silent", "b-silent"}, ids(list))
}
