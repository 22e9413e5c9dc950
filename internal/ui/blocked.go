package ui

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/safe-chain/guard/analyzer"
	"github.com/safe-chain/guard/proxy"
)

// RenderBlockedDownloads prints the table of package downloads the proxy
// refused during this run. Shown even in silent mode: a block changes the
// exit code, so the user must see why.
func RenderBlockedDownloads(blocked []proxy.BlockedRequest) {
	if len(blocked) == 0 {
		return
	}

	fmt.Println()
	fmt.Println(Colors.Red(fmt.Sprintf("✗ Blocked %d malicious package download(s):", len(blocked))))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Package", "Version", "URL"})

	for _, req := range blocked {
		t.AppendRow(table.Row{req.PackageName, req.Version, req.URL})
	}

	t.Render()
}

// RenderDisallowedChanges prints the dependency updates rejected by the
// pre-scan audit. The wrapped command is never started when this renders.
func RenderDisallowedChanges(disallowed []analyzer.DisallowedChange) {
	if len(disallowed) == 0 {
		return
	}

	fmt.Println()
	fmt.Println(Colors.Red(fmt.Sprintf("✗ Refusing to run: %d malicious dependency update(s) detected:", len(disallowed))))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Package", "Version", "Reason"})

	for _, change := range disallowed {
		reason := change.Reason
		if reason == "" {
			reason = "known malware"
		}

		t.AppendRow(table.Row{change.Name, change.Version, reason})
	}

	t.Render()
}

// ShowSuppressedVersionsHint tells the user that some freshly published
// versions were hidden by the minimum package age policy.
func ShowSuppressedVersionsHint(minimumAgeHours int) {
	if verbosityLevel == VerbosityLevelSilent {
		return
	}

	fmt.Printf("%s %s\n",
		Colors.Yellow("!"),
		Colors.Dim(fmt.Sprintf(
			"Some package versions newer than %d hours were hidden by the minimum package age policy (disable with --safe-chain-skip-minimum-package-age)",
			minimumAgeHours)))
}
