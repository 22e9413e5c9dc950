package executors

import (
	"context"
	"fmt"

	"github.com/safe-chain/guard/config"
	"github.com/safe-chain/guard/internal/analytics"
	"github.com/safe-chain/guard/internal/flows"
	"github.com/safe-chain/guard/internal/ui"
	"github.com/safe-chain/guard/packagemanager"
	"github.com/spf13/cobra"
)

func NewPnpxCommand() *cobra.Command {
	return &cobra.Command{
		Use:                "pnpx [package] [action]",
		Short:              "Guard pnpx package executor",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := executePnpxFlow(cmd.Context(), args)
			if err != nil {
				ui.ErrorExit(err)
			}

			return nil
		},
	}
}

func executePnpxFlow(ctx context.Context, args []string) error {
	analytics.TrackCommandPnpx()
	packageExecutor, err := packagemanager.NewNpmPackageExecutor(packagemanager.DefaultPnpxPackageExecutorConfig())
	if err != nil {
		return fmt.Errorf("failed to create pnpx package executor proxy: %w", err)
	}

	config := config.Get()
	parsedCommand, err := packageExecutor.ParseCommand(args)
	if err != nil {
		return fmt.Errorf("failed to parse command: %w", err)
	}

	packageResolverConfig := packagemanager.NewDefaultNpmDependencyResolverConfig()
	packageResolverConfig.IncludeTransitiveDependencies = config.Config.Transitive
	packageResolverConfig.TransitiveDepth = config.Config.TransitiveDepth
	packageResolverConfig.IncludeDevDependencies = config.Config.IncludeDevDependencies

	packageResolver, err := packagemanager.NewNpmDependencyResolver(packageResolverConfig)
	if err != nil {
		return fmt.Errorf("failed to create dependency resolver: %w", err)
	}

	return flows.ProxyFlow(packageExecutor, packageResolver).Run(ctx, args, parsedCommand)
}
