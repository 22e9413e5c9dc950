package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/safe-chain/guard/analyzer"
)

// The UI is internal to the guard CLI and opinionated for the CLI.
// It is not intended to be used outside of it.

type VerbosityLevel int

const (
	// The guard is hidden from the user except for errors
	// and when malicious packages are detected
	VerbosityLevelSilent VerbosityLevel = iota

	// Show minimal status updates
	VerbosityLevelNormal

	// Show verbose status updates and information including
	// information about malicious packages
	VerbosityLevelVerbose
)

var verbosityLevel VerbosityLevel = VerbosityLevelNormal

func SetVerbosityLevel(level VerbosityLevel) {
	verbosityLevel = level
}

func ClearStatus() {
	StopSpinner()
	fmt.Print("\r")
}

func SetStatus(status string) {
	if verbosityLevel == VerbosityLevelSilent {
		return
	}

	// Status lines are transient; while the wrapped command owns the
	// terminal they are dropped rather than buffered.
	if IsBuffering() {
		return
	}

	StopSpinner()

	fmt.Print("\r", Colors.Green(status), " ")
	StartSpinner(status)
}

// ShowWarning prints a warning message regardless of verbosity. Warnings are
// security relevant and must not be suppressed; while the wrapped command is
// running they are buffered and flushed once it exits.
func ShowWarning(message string) {
	StopSpinner()
	printOut("%s\n", Colors.Yellow(message))
}

// Fatalf prints an error message and terminates the process.
func Fatalf(format string, args ...interface{}) {
	StopSpinner()
	FlushBuffered()
	fmt.Println(Colors.Red(fmt.Sprintf(format, args...)))
	os.Exit(1)
}

func GetConfirmationOnMalware(malwarePackages []*analyzer.PackageVersionAnalysisResult) (bool, error) {
	StopSpinner()

	// The child is paused while the prompt is shown, so it is safe to take
	// over the terminal. Anything buffered so far goes out first.
	FlushBuffered()

	fmt.Println(Colors.Red("🚨 Malicious packages detected:"))

	for _, result := range malwarePackages {
		pkg := result.PackageVersion
		if pkg == nil || pkg.Package == nil {
			continue
		}

		fmt.Println("  ⚠️ ", Colors.Red(fmt.Sprintf("%s@%s", pkg.Package.Name, pkg.Version)))
	}

	fmt.Println()
	fmt.Print(Colors.Yellow("Do you want to continue with the installation? (y/N) "))

	var response string

	// We don't care about the error here because we will return false
	// if the user doesn't provide a valid response
	_, _ = fmt.Scanln(&response)

	if len(response) == 0 {
		return false, nil
	}

	response = strings.ToLower(response)
	if response == "y" || response == "yes" || response[0] == 'y' {
		return true, nil
	}

	return false, nil
}
