package flows

// finalExitCode computes the wrapper's exit status. Disallowed pre-scan
// changes and proxy-blocked downloads force a failing exit regardless of the
// child's own status; otherwise the child's status passes through.
func finalExitCode(preScanDisallowed, proxyBlocked bool, childExit int) int {
	if preScanDisallowed || proxyBlocked {
		return 1
	}

	return childExit
}
