package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/safedep/dry/log"
	"github.com/safe-chain/guard/analyzer"
	"github.com/safe-chain/guard/config"
	"github.com/safe-chain/guard/extractor"
	"github.com/safe-chain/guard/internal/ui"
	"github.com/safe-chain/guard/packagemanager"
)

// preScanTimeout bounds the wall clock of the whole pre-scan: dependency
// update resolution plus the oracle audit. Exceeding it is fatal to the run.
const preScanTimeout = 2 * time.Minute

// preScanSupported reports whether the parsed command carries dependency
// updates we can audit before launching the wrapped tool: either explicit
// install targets (resolved through the package resolver) or a manifest
// install whose lockfiles the extractor understands.
func (f *proxyFlow) preScanSupported(parsedCmd *packagemanager.ParsedCommand) bool {
	if parsedCmd.HasInstallTarget() && f.packageResolver != nil {
		return true
	}

	return parsedCmd.ShouldExtractFromManifest()
}

// preScanCommand resolves the dependency updates the command is about to
// apply and audits them against the malware oracle. Returns nil when the
// command is not a supported install command. A timeout or an unreachable
// oracle returns an error: the wrapped command must not run on an
// unverified dependency set.
func (f *proxyFlow) preScanCommand(
	ctx context.Context,
	oracle analyzer.PackageVersionAnalyzer,
	parsedCmd *packagemanager.ParsedCommand,
	counters *analyzer.AuditCounters,
) (*analyzer.AuditResult, error) {
	if !f.preScanSupported(parsedCmd) {
		log.Debugf("Pre-scan not supported for this command, skipping")
		return nil, nil
	}

	ui.SetStatus("Pre-scanning dependency updates...")
	defer ui.ClearStatus()

	scanCtx, cancel := context.WithTimeout(ctx, preScanTimeout)
	defer cancel()

	changes, err := f.dependencyUpdatesForCommand(scanCtx, parsedCmd)
	if err != nil {
		if scanCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: dependency update resolution exceeded %s", analyzer.ErrAuditTimeout, preScanTimeout)
		}

		return nil, fmt.Errorf("failed to resolve dependency updates: %w", err)
	}

	if len(changes) == 0 {
		return &analyzer.AuditResult{IsAllowed: true}, nil
	}

	log.Debugf("Pre-scanning %d dependency update(s)", len(changes))

	auditorConfig := analyzer.DefaultAuditorConfig(f.pm.Ecosystem())
	auditorConfig.Timeout = preScanTimeout

	auditor := analyzer.NewAuditor(auditorConfig, oracle, counters)

	return auditor.AuditChanges(scanCtx, changes)
}

// dependencyUpdatesForCommand flattens the command's pending dependency
// updates into the PackageChange shape the auditor consumes: explicit install
// targets plus their resolved dependency closure, or for manifest installs
// the packages extracted from the lockfiles about to be applied.
func (f *proxyFlow) dependencyUpdatesForCommand(
	ctx context.Context,
	parsedCmd *packagemanager.ParsedCommand,
) ([]analyzer.PackageChange, error) {
	cfg := config.Get()

	var changes []analyzer.PackageChange
	seen := map[string]bool{}

	appendChange := func(name, version string) {
		key := name + "@" + version
		if seen[key] {
			return
		}

		seen[key] = true
		changes = append(changes, analyzer.PackageChange{
			Name:    name,
			Version: version,
			Type:    analyzer.ChangeAdd,
		})
	}

	// Manifest installs carry their full dependency set in the lockfile, so
	// the extractor gives us the pending updates without registry round trips.
	if parsedCmd.ShouldExtractFromManifest() {
		extractorConfig := extractor.NewDefaultExtractorConfig()
		extractorConfig.ExtractorPackageManager = extractor.PackageManagerName(f.pm.Name())
		extractorConfig.ManifestFiles = parsedCmd.ManifestFiles

		packages, err := extractor.New(*extractorConfig).ExtractManifest()
		if err != nil {
			return nil, fmt.Errorf("failed to extract packages from manifest files: %w", err)
		}

		for _, pkg := range packages {
			appendChange(pkg.GetPackage().GetName(), pkg.GetVersion())
		}
	}

	for _, target := range parsedCmd.InstallTargets {
		pv := target.PackageVersion

		if pv.GetVersion() == "" {
			latest, err := f.packageResolver.ResolveLatestVersion(ctx, pv.GetPackage())
			if err != nil {
				return nil, fmt.Errorf("failed to resolve latest version of %s: %w", pv.GetPackage().GetName(), err)
			}

			pv.Version = latest.GetVersion()
		}

		appendChange(pv.GetPackage().GetName(), pv.GetVersion())

		if !cfg.Config.Transitive {
			continue
		}

		dependencies, err := f.packageResolver.ResolveDependencies(ctx, pv)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve dependencies of %s@%s: %w",
				pv.GetPackage().GetName(), pv.GetVersion(), err)
		}

		for _, dep := range dependencies {
			appendChange(dep.GetPackage().GetName(), dep.GetVersion())
		}
	}

	return changes, nil
}
