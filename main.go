package main

import (
	"fmt"
	"os"

	"github.com/safedep/dry/log"
	"github.com/safe-chain/guard/cmd/executors"
	"github.com/safe-chain/guard/cmd/npm"
	"github.com/safe-chain/guard/cmd/pypi"
	"github.com/safe-chain/guard/cmd/setup"
	"github.com/safe-chain/guard/cmd/version"
	"github.com/safe-chain/guard/config"
	"github.com/safe-chain/guard/internal/eventlog"
	"github.com/safe-chain/guard/internal/ui"
	"github.com/spf13/cobra"
)

var (
	debug        bool
	globalConfig config.Config
)

func main() {
	// Wrapper flags (--safe-chain-*, --include-python) may appear anywhere
	// in the argument list, including after the package manager subcommand,
	// and must never leak into the wrapped tool's arguments.
	args, err := config.ExtractWrapperArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "guard: %v\n", err)
		os.Exit(1)
	}

	globalConfig = config.Get().Config

	cmd := &cobra.Command{
		Use:              "guard",
		TraverseChildren: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogging()

			cmd.SetContext(globalConfig.Inject(cmd.Context()))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}

			return fmt.Errorf("guard: %s is not a valid command", args[0])
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&globalConfig.Transitive, "transitive", true, "Resolve transitive dependencies")
	cmd.PersistentFlags().IntVar(&globalConfig.TransitiveDepth, "transitive-depth", 20,
		"Maximum depth of transitive dependencies to resolve")

	cmd.AddCommand(npm.NewNpmCommand())
	cmd.AddCommand(npm.NewPnpmCommand())
	cmd.AddCommand(npm.NewYarnCommand())
	cmd.AddCommand(npm.NewBunCommand())
	cmd.AddCommand(executors.NewNpxCommand())
	cmd.AddCommand(executors.NewPnpxCommand())
	cmd.AddCommand(pypi.NewPipCommand())
	cmd.AddCommand(pypi.NewPip3Command())
	cmd.AddCommand(pypi.NewUvCommand())
	cmd.AddCommand(pypi.NewPoetryCommand())
	cmd.AddCommand(setup.NewSetupCommand())
	cmd.AddCommand(version.NewVersionCommand())

	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initLogging maps the --safe-chain-logging verbosity onto the logger and
// the UI. --debug forces debug-level logging regardless.
func initLogging() {
	logLevel := "error"

	switch config.LoggingLevel() {
	case config.LoggingNormal:
		logLevel = "info"
		ui.SetVerbosityLevel(ui.VerbosityLevelNormal)
	case config.LoggingVerbose:
		logLevel = "debug"
		ui.SetVerbosityLevel(ui.VerbosityLevelVerbose)
	default:
		ui.SetVerbosityLevel(ui.VerbosityLevelSilent)
	}

	if debug {
		logLevel = "debug"
	}

	os.Setenv("APP_LOG_LEVEL", logLevel)
	log.InitZapLogger("guard", "")

	if !config.Get().Config.SkipEventLogging {
		if err := eventlog.Initialize(); err != nil {
			log.Debugf("Failed to initialize event log: %v", err)
		}
	}
}
