package npm

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

func NewYarnCommand() *cobra.Command {
	return &cobra.Command{
		Use:                "yarn [action] [package]",
		Short:              "Guard yarn package manager",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := executeYarnFlow(cmd.Context(), args)
			if err != nil {
				ui.ErrorExit(err)
			}
			return nil
		},
	}
}

func executeYarnFlow(ctx context.Context, args []string) error {
	analytics.TrackCommandYarn()

	packageManager, err := packagemanager.NewNpmPackageManager(packagemanager.DefaultYarnPackageManagerConfig())
	if err != nil {
		return fmt.Errorf("failed to create yarn package manager proxy: %w", err)
	}

	config := config.Get()
	parsedCommand, err := packageManager.ParseCommand(args)
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

	return flows.ProxyFlow(packageManager, packageResolver).Run(ctx, args, parsedCommand)
}
