package ui

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStdout redirects os.Stdout for the duration of fn and returns what
// was written to it.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	original := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = w
	defer func() { os.Stdout = original }()

	fn()

	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestBufferingHoldsOutputUntilFlush(t *testing.T) {
	during := captureStdout(t, func() {
		BeginBuffering()
		printOut("held back\n")
	})
	assert.Empty(t, during, "output must not reach the terminal while buffering")
	assert.True(t, IsBuffering())

	flushed := captureStdout(t, func() {
		EndBuffering()
	})
	assert.Equal(t, "held back\n", flushed)
	assert.False(t, IsBuffering())
}

func TestFlushBufferedKeepsBufferingActive(t *testing.T) {
	BeginBuffering()
	defer EndBuffering()

	printOut("first\n")

	flushed := captureStdout(t, func() {
		FlushBuffered()
	})
	assert.Equal(t, "first\n", flushed)
	assert.True(t, IsBuffering())

	second := captureStdout(t, func() {
		printOut("second\n")
	})
	assert.Empty(t, second, "writes after a flush are buffered again")

	rest := captureStdout(t, func() {
		FlushBuffered()
	})
	assert.Equal(t, "second\n", rest)
}

func TestPrintOutWritesDirectlyWhenNotBuffering(t *testing.T) {
	out := captureStdout(t, func() {
		printOut("direct\n")
	})
	assert.Equal(t, "direct\n", out)
}
