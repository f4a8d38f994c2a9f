package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesPredefinedWithIs(t *testing.T) {
	err := Clone(ErrDuplicateEvent, "event \"Standup\" already exists")
	wrapped := fmt.Errorf("create: %w", err)

	assert.True(t, stdErrors.Is(wrapped, ErrDuplicateEvent))
	assert.False(t, stdErrors.Is(wrapped, ErrNotFound))
	assert.Equal(t, "event \"Standup\" already exists", err.Error())
	assert.Equal(t, "event already exists", ErrDuplicateEvent.Message)
}

func TestFromErrorNormalisesUnknownErrors(t *testing.T) {
	appErr := FromError(stdErrors.New("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Contains(t, appErr.Error(), "boom")

	typed := FromError(fmt.Errorf("outer: %w", Clone(ErrUnknownCalendar, "calendar \"Work\" not found")))
	assert.Equal(t, ErrUnknownCalendar.Code, typed.Code)
	assert.Nil(t, FromError(nil))
}

func TestClonefFormatsMessage(t *testing.T) {
	err := Clonef(ErrUnknownProperty, "unknown property %q", "colour")
	assert.Equal(t, `unknown property "colour"`, err.Error())
	assert.Equal(t, ErrUnknownProperty.Status, err.Status)
}
