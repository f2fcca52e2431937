package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		_ = SetLevel("info")
	})

	require.NoError(t, SetLevel("warn"))
	LogInfo("hidden %d", 1)
	assert.Empty(t, buf.String())

	LogWarn("resize to %dx%d failed", 1024, 768)
	assert.Contains(t, buf.String(), "resize to 1024x768 failed")
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	assert.Error(t, SetLevel("chatty"))
}
