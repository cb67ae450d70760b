package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeExtractsFromChain(t *testing.T) {
	err := NewSubmission(fmt.Errorf("db down"))
	wrapped := fmt.Errorf("submit: %w", err)

	assert.Equal(t, ErrSubmission, Code(wrapped))
}

func TestCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, ErrInternal, Code(fmt.Errorf("plain")))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := NewReferenceLookup("patient directory", fmt.Errorf("timeout"))

	assert.Contains(t, err.Error(), "patient directory lookup failed")
	assert.Contains(t, err.Error(), "timeout")
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("gone")
	err := NewRehydration(cause)

	assert.True(t, Is(err, cause))
}

func TestNotFoundMessage(t *testing.T) {
	err := NewNotFound("draft session", nil)
	assert.Equal(t, "draft session not found", err.Error())
}
