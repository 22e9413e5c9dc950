package interceptors

import (
	"fmt"
	"net/url"
	"strings"
)

// pypiPackageInfo represents parsed package information from a PyPI registry URL
type pypiPackageInfo struct {
	name       string
	version    string
	isDownload bool   // True if this is a file download (sdist or wheel)
	fileType   string // "sdist", "wheel", or empty for non-download requests
}

// Ensure pypiPackageInfo implements packageInfo interface
var _ packageInfo = (*pypiPackageInfo)(nil)

// GetName returns the package name
func (p *pypiPackageInfo) GetName() string {
	return p.name
}

// GetVersion returns the package version
func (p *pypiPackageInfo) GetVersion() string {
	return p.version
}

// IsFileDownload returns true if this is a file download (sdist or wheel)
func (p *pypiPackageInfo) IsFileDownload() bool {
	return p.isDownload
}

// FileType returns the file type ("sdist", "wheel", or empty)
func (p *pypiPackageInfo) FileType() string {
	return p.fileType
}

// pypiFilesParser parses URLs from files.pythonhosted.org
// This is where PyPI serves package files (sdists and wheels)
type pypiFilesParser struct{}

// Ensure pypiFilesParser implements RegistryURLParser interface
var _ registryURLParser = pypiFilesParser{}

// ParseURL parses files.pythonhosted.org URL paths
// URL patterns:
// - /packages/{hash_dirs}/{filename}
// Where filename can be:
// - {name}-{version}.tar.gz (sdist)
// - {name}-{version}.zip (sdist)
// - {name}-{version}(-{build})?-{python}-{abi}-{platform}.whl (wheel)
func (p pypiFilesParser) ParseURL(urlPath string) (packageInfo, error) {
	// Remove leading and trailing slashes
	urlPath = strings.Trim(urlPath, "/")

	if urlPath == "" {
		return nil, fmt.Errorf("empty URL path")
	}

	// Split path into segments
	segments := strings.Split(urlPath, "/")

	// files.pythonhosted.org paths start with "packages"
	// Format: packages/{hash_prefix}/{filename}
	// The hash prefix can be variable length (typically 2-3 directory levels)
	if len(segments) < 2 {
		return nil, fmt.Errorf("invalid PyPI files URL: not enough segments")
	}

	// The filename is always the last segment
	filename := segments[len(segments)-1]

	// Check if it's a packages download path
	if segments[0] != "packages" {
		return nil, fmt.Errorf("invalid PyPI files URL: expected 'packages' prefix, got %s", segments[0])
	}

	return parseFilename(filename)
}

// pypiOrgParser parses URLs from pypi.org (Simple API and JSON API)
type pypiOrgParser struct{}

// Ensure pypiOrgParser implements RegistryURLParser interface
var _ registryURLParser = pypiOrgParser{}

// ParseURL parses pypi.org URL paths
// URL patterns:
// - /simple/{package}/ (Simple API - package index)
// - /simple/{package}/{filename} (Simple API - file redirect, rare)
// - /pypi/{package}/json (JSON API - package metadata)
// - /pypi/{package}/{version}/json (JSON API - version metadata)
func (p pypiOrgParser) ParseURL(urlPath string) (packageInfo, error) {
	// Remove leading and trailing slashes
	urlPath = strings.Trim(urlPath, "/")

	if urlPath == "" {
		return nil, fmt.Errorf("empty URL path")
	}

	// Split path into segments
	segments := strings.Split(urlPath, "/")

	if len(segments) < 2 {
		return nil, fmt.Errorf("invalid pypi.org URL: not enough segments")
	}

	switch segments[0] {
	case "simple":
		// Simple API: /simple/{package}/ or /simple/{package}/{filename}
		return parseSimpleAPIURL(segments[1:])
	case "pypi":
		// JSON API: /pypi/{package}/json or /pypi/{package}/{version}/json
		return parseJSONAPIURL(segments[1:])
	default:
		return nil, fmt.Errorf("unknown pypi.org path prefix: %s", segments[0])
	}
}

// parseSimpleAPIURL parses Simple API URL paths
func parseSimpleAPIURL(segments []string) (*pypiPackageInfo, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("invalid Simple API URL: missing package name")
	}

	packageName := segments[0]

	// Simple API index request: /simple/{package}/
	if len(segments) == 1 {
		return &pypiPackageInfo{
			name:       normalizePyPIPackageName(packageName),
			isDownload: false,
		}, nil
	}

	// Simple API might include filename (for redirects): /simple/{package}/{filename}
	if len(segments) == 2 {
		filename := segments[1]
		info, err := parseFilename(filename)
		if err != nil {
			// If we can't parse the filename, treat it as a non-download request
			return &pypiPackageInfo{
				name:       normalizePyPIPackageName(packageName),
				isDownload: false,
			}, nil
		}
		return info, nil
	}

	return nil, fmt.Errorf("invalid Simple API URL format: too many segments")
}

// parseJSONAPIURL parses JSON API URL paths
func parseJSONAPIURL(segments []string) (*pypiPackageInfo, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("invalid JSON API URL: missing package name")
	}

	packageName := segments[0]

	// /pypi/{package}/json - package metadata (no specific version)
	if len(segments) == 2 && segments[1] == "json" {
		return &pypiPackageInfo{
			name:       normalizePyPIPackageName(packageName),
			isDownload: false,
		}, nil
	}

	// /pypi/{package}/{version}/json - version metadata
	if len(segments) == 3 && segments[2] == "json" {
		return &pypiPackageInfo{
			name:       normalizePyPIPackageName(packageName),
			version:    segments[1],
			isDownload: false,
		}, nil
	}

	return nil, fmt.Errorf("invalid JSON API URL format")
}

// normalizePyPIPackageName lowercases a package name and collapses
// underscores to hyphens, matching how PyPI's metadata endpoints address
// packages. Distribution filenames are never normalized - their name is
// reported exactly as it appears in the file.
func normalizePyPIPackageName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

// sdistExtensions are the archive suffixes PyPI serves source distributions
// under. Order matters: ".tar.gz" must be checked before any ".gz" style
// shortcut would.
var sdistExtensions = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".zip"}

// passThroughPackageInfo marks a request we could not derive a concrete
// (name, version) from. The interceptor never treats missing info as
// malicious - the request streams through unblocked.
func passThroughPackageInfo() *pypiPackageInfo {
	return &pypiPackageInfo{isDownload: false}
}

// parseFilename extracts package name and version from a PyPI distribution
// filename. The filename is URL-decoded first; anything that is neither a
// wheel nor a recognized sdist archive parses as a pass-through request.
func parseFilename(filename string) (*pypiPackageInfo, error) {
	if decoded, err := url.PathUnescape(filename); err == nil {
		filename = decoded
	}

	if strings.HasSuffix(filename, ".whl") {
		return parseWheelFilename(filename), nil
	}

	for _, ext := range sdistExtensions {
		if strings.HasSuffix(filename, ext) {
			return parseSdistFilename(strings.TrimSuffix(filename, ext)), nil
		}
	}

	return passThroughPackageInfo(), nil
}

// parseWheelFilename parses a wheel filename to extract package info.
// Wheel filename format: {distribution}-{version}(-{build tag})?-{python tag}-{abi tag}-{platform tag}.whl
// Examples:
// - requests-2.28.0-py3-none-any.whl
// - numpy-1.24.0-cp311-cp311-linux_x86_64.whl
// - package_name-1.0.0-1-py3-none-any.whl (with build tag)
//
// Distribution names in wheel filenames are normalized (hyphens become
// underscores), so the first "-" always terminates the name and the second
// field is always the version. Underscores in the name are preserved.
func parseWheelFilename(filename string) *pypiPackageInfo {
	basename := strings.TrimSuffix(filename, ".whl")
	parts := strings.Split(basename, "-")

	// Minimum: name-version-python-abi-platform (5 parts)
	if len(parts) < 5 {
		return passThroughPackageInfo()
	}

	name := parts[0]
	version := parts[1]

	if name == "" || version == "" || version == "latest" {
		return passThroughPackageInfo()
	}

	return &pypiPackageInfo{
		name:       name,
		version:    version,
		isDownload: true,
		fileType:   "wheel",
	}
}

// parseSdistFilename parses a source distribution basename (extension already
// stripped) to extract package info.
// Sdist filename format: {name}-{version}.tar.gz or {name}-{version}.zip
// Examples:
// - requests-2.28.1.tar.gz
// - Flask-RESTful-0.3.10.tar.gz (note: hyphens in name)
//
// Unlike wheels, sdist names keep their dots, underscores and hyphens, and
// nothing trails the version. The last "-" therefore separates name from
// version.
func parseSdistFilename(basename string) *pypiPackageInfo {
	idx := strings.LastIndex(basename, "-")
	if idx <= 0 || idx == len(basename)-1 {
		return passThroughPackageInfo()
	}

	name := basename[:idx]
	version := basename[idx+1:]

	if version == "latest" {
		return passThroughPackageInfo()
	}

	return &pypiPackageInfo{
		name:       name,
		version:    version,
		isDownload: true,
		fileType:   "sdist",
	}
}
