package packagemanager

import (
	"context"
	"fmt"
	"sync"

	packagev1 "buf.build/gen/go/safedep/api/protocolbuffers/go/safedep/messages/package/v1"
	"github.com/safedep/dry/log"
	"github.com/safedep/dry/packageregistry"
)

type dependencyResolverConfig struct {
	IncludeDevDependencies        bool
	IncludeTransitiveDependencies bool
	TransitiveDepth               int
	FailFast                      bool

	// MaxConcurrency limits the number of concurrent dependency fetches per
	// resolution level.
	MaxConcurrency int
}

// versionSpecResolverFn turns a version spec (range, constraint, empty) into
// a concrete version for the given package. Returning the spec unchanged is
// acceptable when the registry understands it.
type versionSpecResolverFn func(packageName, versionSpec string) string

// dependencyListFn fetches the direct dependencies of a package version.
// When nil, the registry client's package discovery is used.
type dependencyListFn func(packageName, version string) (*packageregistry.PackageDependencyList, error)

// packageKeyFn produces the dedup key for a package version. When nil, the
// plain name@version form is used.
type packageKeyFn func(pkg *packagev1.PackageVersion) string

// dependencyResolver walks a dependency graph breadth first, deduplicating
// visited packages and bounding both depth and fetch concurrency. Ecosystem
// specifics (version spec semantics, registry endpoints, name normalization)
// are injected by the per-ecosystem resolvers.
type dependencyResolver struct {
	client packageregistry.Client
	config dependencyResolverConfig

	resolveVersionSpec versionSpecResolverFn
	listDependencies   dependencyListFn
	packageKey         packageKeyFn
}

func newDependencyResolver(client packageregistry.Client, config dependencyResolverConfig,
	resolveVersionSpec versionSpecResolverFn, listDependencies dependencyListFn, packageKey packageKeyFn,
) *dependencyResolver {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 1
	}

	r := &dependencyResolver{
		client:             client,
		config:             config,
		resolveVersionSpec: resolveVersionSpec,
		listDependencies:   listDependencies,
		packageKey:         packageKey,
	}

	if r.resolveVersionSpec == nil {
		r.resolveVersionSpec = func(_, versionSpec string) string { return versionSpec }
	}

	if r.packageKey == nil {
		r.packageKey = func(pkg *packagev1.PackageVersion) string {
			return fmt.Sprintf("%s@%s", pkg.GetPackage().GetName(), pkg.GetVersion())
		}
	}

	return r
}

func (r *dependencyResolver) resolveDependencies(ctx context.Context,
	packageVersion *packagev1.PackageVersion) ([]*packagev1.PackageVersion, error) {

	listDependencies := r.listDependencies
	if listDependencies == nil {
		pd, err := r.client.PackageDiscovery()
		if err != nil {
			return nil, fmt.Errorf("failed to get package discovery: %w", err)
		}

		listDependencies = func(packageName, version string) (*packageregistry.PackageDependencyList, error) {
			return pd.GetPackageDependencies(packageName, version)
		}
	}

	visited := map[string]bool{
		r.packageKey(packageVersion): true,
	}

	var result []*packagev1.PackageVersion

	frontier := []*packagev1.PackageVersion{packageVersion}

	maxDepth := r.config.TransitiveDepth
	if !r.config.IncludeTransitiveDependencies {
		maxDepth = 1
	}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := r.resolveLevel(ctx, frontier, listDependencies, visited)
		if err != nil {
			if r.config.FailFast {
				return nil, err
			}

			log.Warnf("error resolving package dependencies: %v", err)
		}

		result = append(result, next...)
		frontier = next
	}

	if len(frontier) > 0 && r.config.IncludeTransitiveDependencies {
		log.Debugf("dependency resolution stopped at maximum transitive depth %d", maxDepth)
	}

	return result, nil
}

// resolveLevel fetches the direct dependencies of every package in the
// frontier, bounded by MaxConcurrency, and returns the newly discovered
// package versions.
func (r *dependencyResolver) resolveLevel(ctx context.Context, frontier []*packagev1.PackageVersion,
	listDependencies dependencyListFn, visited map[string]bool) ([]*packagev1.PackageVersion, error) {

	type fetchResult struct {
		parent *packagev1.PackageVersion
		list   *packageregistry.PackageDependencyList
		err    error
	}

	sem := make(chan struct{}, r.config.MaxConcurrency)
	results := make([]fetchResult, len(frontier))

	var wg sync.WaitGroup
	for i, pkg := range frontier {
		wg.Add(1)
		go func(i int, pkg *packagev1.PackageVersion) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				results[i] = fetchResult{parent: pkg, err: err}
				return
			}

			log.Debugf("resolving dependencies for %s@%s", pkg.GetPackage().GetName(), pkg.GetVersion())

			list, err := listDependencies(pkg.GetPackage().GetName(), pkg.GetVersion())
			results[i] = fetchResult{parent: pkg, list: list, err: err}
		}(i, pkg)
	}
	wg.Wait()

	var next []*packagev1.PackageVersion
	var firstErr error

	for _, res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to get dependencies of %s@%s: %w",
					res.parent.GetPackage().GetName(), res.parent.GetVersion(), res.err)
			}
			continue
		}

		if res.list == nil {
			continue
		}

		dependencies := res.list.Dependencies
		if r.config.IncludeDevDependencies {
			dependencies = append(dependencies, res.list.DevDependencies...)
		}

		for _, dependency := range dependencies {
			depPackageVersion := &packagev1.PackageVersion{
				Package: &packagev1.Package{
					Ecosystem: res.parent.GetPackage().GetEcosystem(),
					Name:      dependency.Name,
				},
				Version: r.resolveVersionSpec(dependency.Name, dependency.VersionSpec),
			}

			key := r.packageKey(depPackageVersion)
			if visited[key] {
				continue
			}

			visited[key] = true
			next = append(next, depPackageVersion)
		}
	}

	return next, firstErr
}
