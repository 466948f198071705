package prompt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmWithForce_SkipsPrompt(t *testing.T) {
	ok, err := ConfirmWithForce("Evict client?", true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(ErrAborted))
	assert.True(t, IsAborted(fmt.Errorf("evict: %w", ErrAborted)))
	assert.False(t, IsAborted(nil))
	assert.False(t, IsAborted(fmt.Errorf("other")))
}
