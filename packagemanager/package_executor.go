package packagemanager

import packagev1 "buf.build/gen/go/safedep/api/protocolbuffers/go/safedep/messages/package/v1"

// PackageExecutor is the contract for run-once executors (npx, pnpx) that
// download and execute a package instead of installing it. They are wrapped
// by the same proxy flow as regular installs.
type PackageExecutor interface {
	// Name of the package executor implementation
	Name() string

	// ParsedCommand parses the command and returns a parsed command
	// specific to the package executor implementation
	ParsedCommand(args []string) (*ParsedCommand, error)

	// Ecosystem of the package manager
	Ecosystem() packagev1.Ecosystem
}
