package extractor

import (
	packagev1 "buf.build/gen/go/safedep/api/protocolbuffers/go/safedep/messages/package/v1"
)

// PackageManagerName identifies the wrapped package manager an extractor
// serves. Values match PackageManager.Name().
type PackageManagerName string

const (
	Npm    PackageManagerName = "npm"
	Pnpm   PackageManagerName = "pnpm"
	Yarn   PackageManagerName = "yarn"
	Bun    PackageManagerName = "bun"
	Pip    PackageManagerName = "pip"
	Pip3   PackageManagerName = "pip3"
	Uv     PackageManagerName = "uv"
	Poetry PackageManagerName = "poetry"
)

// PackageManagerExtractor extracts packages from the lockfiles a specific
// package manager maintains.
type PackageManagerExtractor interface {
	GetSupportedFiles() []string
	GetEcosystem() packagev1.Ecosystem
	GetPackageManager() PackageManagerName
	Extract(lockfilePath, scanDir string) ([]*packagev1.PackageVersion, error)
}

// ExtractorManager maps package managers to their lockfile extractors.
type ExtractorManager struct {
	extractors map[PackageManagerName]PackageManagerExtractor
}

func NewExtractorManager() *ExtractorManager {
	return &ExtractorManager{
		extractors: map[PackageManagerName]PackageManagerExtractor{
			Npm:  &NpmExtractor{},
			Pnpm: &PnpmExtractor{},
			Bun:  &BunExtractor{},
			Pip:  &PipExtractor{},
			// pip3 maintains the same requirements.txt shape as pip.
			Pip3: &PipExtractor{},
			Uv:   &UvExtractor{},
		},
	}
}

// GetExtractorForPackageManager returns the extractor registered for the
// package manager, or nil when manifest extraction is not supported for it
// (e.g. yarn, poetry).
func (em *ExtractorManager) GetExtractorForPackageManager(pm PackageManagerName) PackageManagerExtractor {
	return em.extractors[pm]
}

// GetSupportedFilesForPackageManager returns the lockfile names the package
// manager's extractor understands.
func (em *ExtractorManager) GetSupportedFilesForPackageManager(pm PackageManagerName) []string {
	if extractor, exists := em.extractors[pm]; exists {
		return extractor.GetSupportedFiles()
	}

	return nil
}

// BunExtractor handles bun.lock files
type BunExtractor struct{}

func (b *BunExtractor) GetSupportedFiles() []string {
	return []string{"bun.lock"}
}

func (b *BunExtractor) GetEcosystem() packagev1.Ecosystem {
	return packagev1.Ecosystem_ECOSYSTEM_NPM
}

func (b *BunExtractor) GetPackageManager() PackageManagerName {
	return Bun
}

func (b *BunExtractor) Extract(lockfilePath, scanDir string) ([]*packagev1.PackageVersion, error) {
	return parseLockfile(lockfilePath, scanDir, b.GetEcosystem())
}
