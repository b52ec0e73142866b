package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, CodePersistence, CodeOf(E(CodePersistence, "store.write", base)))
	assert.Equal(t, CodeRunFailed, CodeOf(Errorf(CodeRunFailed, "run", "status %s", "failed")))

	// Wrapped tagged errors still resolve.
	wrapped := fmt.Errorf("outer: %w", E(CodeForbidden, "authorize", base))
	assert.Equal(t, CodeForbidden, CodeOf(wrapped))

	// Untagged errors default to internal.
	assert.Equal(t, CodeInternal, CodeOf(base))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}

func TestErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := E(CodeAssistantCall, "assistant.send", base)

	assert.True(t, errors.Is(err, base))
	assert.Contains(t, err.Error(), "assistant.send")
}
