package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesOnType(t *testing.T) {
	err := fmt.Errorf("run: %w", New(ErrorTypeInitialLoad, "wait_initial", "no items within 15s"))

	assert.True(t, stderrors.Is(err, ErrInitialLoad))
	assert.False(t, stderrors.Is(err, ErrAdapter))
	assert.Equal(t, ErrorTypeInitialLoad, TypeOf(err))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrorTypeAdapter, "navigate", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, stderrors.Is(err, ErrAdapter))
	assert.Equal(t, "adapter error in navigate: connection refused", err.Error())
	assert.Nil(t, Wrap(ErrorTypeAdapter, "navigate", nil))
}

func TestTypeOfUnknown(t *testing.T) {
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		retryable bool
	}{
		{ErrorTypeAdapter, true},
		{ErrorTypeInitialLoad, false},
		{ErrorTypeAuth, false},
		{ErrorTypeExtraction, false},
		{ErrorTypeFilterParse, false},
		{ErrorTypeResourceRelease, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.errorType))
		})
	}
}
