package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("user not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindStorage, KindOf(errors.New("connection reset")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestConflictUnwrapsCause(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	err := Conflict(cause, "match already exists")

	assert.True(t, errors.Is(err, ErrConflict))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "match already exists")
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", Validation("likedId is required"), "likedId is required"},
		{"wrapped not found", fmt.Errorf("get: %w", NotFound("user not found")), "user not found"},
		{"storage hides detail", Storage(errors.New("pq: password auth failed"), "failed to get user"), "internal server error"},
		{"plain error", errors.New("boom"), "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PublicMessage(tt.err))
		})
	}
}
