package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(KindInvalidLevel, "mastery.SetLevel", "level %d outside [0, %d]", 9, 5)

	assert.True(t, errors.Is(err, ErrInvalidLevel))
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "mastery.SetLevel: level 9 outside [0, 5]", err.Error())
}

func TestIsThroughWrapping(t *testing.T) {
	inner := Wrap(KindStorageUnavailable, "store.exec", context.DeadlineExceeded)
	outer := fmt.Errorf("record answer: %w", inner)

	assert.True(t, errors.Is(outer, ErrStorageUnavailable))
	assert.True(t, errors.Is(outer, context.DeadlineExceeded))
	assert.Equal(t, KindStorageUnavailable, KindOf(outer))
	assert.True(t, Retryable(outer))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(KindStorageConflict, "op", nil))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.False(t, Retryable(errors.New("boom")))
}

func TestInsufficientContentUnwraps(t *testing.T) {
	detail := &InsufficientContentError{Level: 0, Wanted: 5, Available: 3}
	err := &Error{Kind: KindInsufficientContent, Op: "session.Compose", Err: detail}

	var got *InsufficientContentError
	assert.True(t, errors.As(err, &got))
	assert.Equal(t, 3, got.Available)
	assert.True(t, errors.Is(err, ErrInsufficientContent))
}
