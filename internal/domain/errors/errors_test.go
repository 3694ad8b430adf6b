package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCategories(t *testing.T) {
	cause := errors.New("connection reset")

	transient := NewTransientError("posting message", cause)
	assert.True(t, IsTransientError(transient))
	assert.False(t, IsPermanentError(transient))
	assert.ErrorIs(t, transient, cause)
	assert.Equal(t, "posting message: connection reset", transient.Error())

	permanent := NewPermanentError("posting message: channel_not_found", nil)
	assert.True(t, IsPermanentError(permanent))
	assert.False(t, IsTransientError(permanent))
	assert.Equal(t, "posting message: channel_not_found", permanent.Error())
}

func TestIsTransientError_Wrapped(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", NewTransientError("rate limited", nil))
	assert.True(t, IsTransientError(err))
	assert.False(t, IsTransientError(errors.New("plain")))
}
