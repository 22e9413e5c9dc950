//go:build windows
// +build windows

package flows

import (
	"os/exec"
)

// Windows has no SIGSTOP/SIGCONT equivalent we can deliver to an arbitrary
// child process. Pausing is a no-op; in the worst case the confirmation
// prompt renders interleaved with the child's output.

func platformPauseProcess(_ *exec.Cmd) error {
	return nil
}

func platformResumeProcess(_ *exec.Cmd) error {
	return nil
}
