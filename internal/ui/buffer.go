package ui

import (
	"bytes"
	"fmt"
	"os"
	"sync"
)

// While the wrapped package manager owns the terminal, our own output is
// buffered so it cannot interleave with the child's escape sequences. The
// buffer is flushed when the child exits or a termination signal arrives.
// Transient status lines and the spinner are suppressed for the duration; the
// confirmation prompt flushes first because the child is paused while it is
// shown.
var (
	bufferMu  sync.Mutex
	buffering bool
	buffered  bytes.Buffer
)

// BeginBuffering starts capturing ui output instead of writing it to the
// terminal.
func BeginBuffering() {
	bufferMu.Lock()
	defer bufferMu.Unlock()

	buffering = true
}

// FlushBuffered writes any captured output to the terminal. Buffering stays
// active.
func FlushBuffered() {
	bufferMu.Lock()
	defer bufferMu.Unlock()

	flushLocked()
}

// EndBuffering flushes captured output and returns to direct writes.
func EndBuffering() {
	bufferMu.Lock()
	defer bufferMu.Unlock()

	flushLocked()
	buffering = false
}

// IsBuffering reports whether ui output is currently being captured.
func IsBuffering() bool {
	bufferMu.Lock()
	defer bufferMu.Unlock()

	return buffering
}

func flushLocked() {
	if buffered.Len() == 0 {
		return
	}

	_, _ = os.Stdout.Write(buffered.Bytes())
	buffered.Reset()
}

// printOut writes formatted output to the terminal, or to the buffer while
// the wrapped command is running.
func printOut(format string, args ...interface{}) {
	bufferMu.Lock()
	defer bufferMu.Unlock()

	if buffering {
		fmt.Fprintf(&buffered, format, args...)
		return
	}

	fmt.Printf(format, args...)
}
