package interceptors

import (
	"github.com/safe-chain/guard/analyzer"
)

// UserInteraction carries the callbacks the interceptors use to talk to the
// user while the wrapped command is running: status updates during analysis
// and the confirmation prompt for suspicious packages. Every field is
// optional; a nil callback is skipped.
type UserInteraction struct {
	// SetStatus is called to show a transient status line in the UI
	SetStatus func(status string)

	// ClearStatus removes the transient status line
	ClearStatus func()

	// ShowWarning is called to show a warning message to the user
	ShowWarning func(message string)

	// GetConfirmationOnMalware prompts the user to allow or reject the
	// installation of suspicious packages
	GetConfirmationOnMalware func(malwarePackages []*analyzer.PackageVersionAnalysisResult) (bool, error)
}
