package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := WithField(ErrScoreOutOfRange, "examScore", "must be between 0 and 100")
	wrapped := fmt.Errorf("set score: %w", err)

	assert.True(t, errors.Is(wrapped, ErrScoreOutOfRange))
	assert.False(t, errors.Is(wrapped, ErrInvalidScore))
	assert.Equal(t, "examScore: must be between 0 and 100", err.Error())
	assert.Equal(t, "score out of range", ErrScoreOutOfRange.Message)
}

func TestWithFieldsSummary(t *testing.T) {
	err := WithFields(ErrInvalidSettings, map[string]string{"term": "bad term", "classSize": "too big"})
	assert.Equal(t, "invalid school settings (classSize: too big; term: bad term)", err.Error())
	assert.Nil(t, ErrInvalidSettings.Fields)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := errors.New("disk full")
	converted := FromError(plain)
	assert.Equal(t, ErrInternal.Code, converted.Code)
	assert.ErrorIs(t, converted, plain)

	typed := Clone(ErrNotFound, "student not found")
	assert.Same(t, typed, FromError(fmt.Errorf("wrap: %w", typed)))
}
