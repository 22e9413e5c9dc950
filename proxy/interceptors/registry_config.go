package interceptors

import "strings"

// packageInfo is the parse result for a registry URL. Requests we cannot
// derive a concrete (name, version) from report IsFileDownload false and are
// never blocked.
type packageInfo interface {
	// GetName returns the package name
	GetName() string

	// GetVersion returns the package version (may be empty for metadata requests)
	GetVersion() string

	// IsFileDownload returns true for artifact downloads (tarball, wheel,
	// sdist) that carry a concrete version worth gating on the oracle
	IsFileDownload() bool
}

// registryURLParser extracts package information from a registry URL path.
// Each registry endpoint shape (npm, PyPI files, PyPI APIs) has its own
// implementation.
type registryURLParser interface {
	ParseURL(urlPath string) (packageInfo, error)
}

// registryConfig describes one intercepted registry endpoint.
type registryConfig struct {
	// Host is the hostname of the registry
	Host string

	// SupportedForAnalysis gates the malware oracle for this endpoint.
	// Endpoints kept for routing but not analysis (test instances) set it
	// false and stream through untouched.
	SupportedForAnalysis bool

	// Parser is the URL parser for this registry
	Parser registryURLParser
}

// registryConfigMap is the per-ecosystem routing table: hostname to endpoint
// configuration. A hostname that resolves to no entry means the CONNECT is
// tunneled blind instead of TLS-terminated.
type registryConfigMap map[string]*registryConfig

// GetConfigForHostname resolves a hostname to its endpoint configuration,
// matching exactly first and then by registered suffix so CDN subdomains
// (e.g. "cdn.registry.example.org") route like their parent. When several
// registered suffixes match, the longest (most specific) one wins so the
// lookup stays deterministic across map iteration orders.
func (m registryConfigMap) GetConfigForHostname(hostname string) *registryConfig {
	if config, exists := m[hostname]; exists {
		return config
	}

	var bestConfig *registryConfig
	bestLen := 0

	for endpoint, config := range m {
		if !strings.HasSuffix(hostname, "."+endpoint) {
			continue
		}

		if len(endpoint) > bestLen {
			bestLen = len(endpoint)
			bestConfig = config
		}
	}

	return bestConfig
}

// ContainsHostname reports whether the hostname routes to any configured
// registry endpoint.
func (m registryConfigMap) ContainsHostname(hostname string) bool {
	return m.GetConfigForHostname(hostname) != nil
}
