package interceptors

import (
	"strings"

	packagev1 "buf.build/gen/go/safedep/api/protocolbuffers/go/safedep/messages/package/v1"
	"github.com/safedep/dry/log"
	"github.com/safe-chain/guard/analyzer"
	"github.com/safe-chain/guard/proxy"
)

// Only the public npm registries are intercepted. Any other host (private
// registries, GitHub packages, CDNs) gets a blind CONNECT tunnel.
var npmRegistryDomains = registryConfigMap{
	"registry.npmjs.org": {
		Host:                 "registry.npmjs.org",
		SupportedForAnalysis: true,
		Parser:               npmParser{},
	},
	"registry.yarnpkg.com": {
		Host:                 "registry.yarnpkg.com",
		SupportedForAnalysis: true,
		Parser:               npmParser{},
	},
}

// npmURLKind classifies a registry request path into the three shapes npm's
// HTTP API mixes together under the same host: a tarball download, an opaque
// "special" endpoint (search, dist-tag mutation, ping, ...) that is never a
// package metadata document, and a packument (package metadata) request.
type npmURLKind int

const (
	npmURLKindMetadata npmURLKind = iota
	npmURLKindTarball
	npmURLKindSpecial
)

// classifyNpmURLPath inspects a request path without attempting a full parse.
// npm's "/-/" separator is overloaded: "/pkg/-/pkg-1.0.0.tgz" is a tarball,
// while "/-/v1/search", "/-/package/pkg/dist-tags/latest" and friends are
// special endpoints that never return a packument and must never be fed to
// the packument rewriter.
func classifyNpmURLPath(urlPath string) npmURLKind {
	trimmed := strings.Trim(urlPath, "/")

	if strings.HasSuffix(trimmed, ".tgz") {
		return npmURLKindTarball
	}

	if trimmed == "-" || strings.HasPrefix(trimmed, "-/") || strings.Contains(trimmed, "/-/") {
		return npmURLKindSpecial
	}

	return npmURLKindMetadata
}

// NpmRegistryInterceptor intercepts NPM registry requests, blocks known
// malicious tarball downloads and rewrites packument metadata to enforce the
// minimum package age policy. It embeds baseRegistryInterceptor to reuse
// ecosystem agnostic functionality.
type NpmRegistryInterceptor struct {
	baseRegistryInterceptor

	state     *proxy.StateCollector
	intercept *proxy.RequestInterceptor
}

var _ proxy.Interceptor = (*NpmRegistryInterceptor)(nil)

// NewNpmRegistryInterceptor creates a new NPM registry interceptor
func NewNpmRegistryInterceptor(
	analyzer analyzer.PackageVersionAnalyzer,
	cache AnalysisCache,
	statsCollector *AnalysisStatsCollector,
	state *proxy.StateCollector,
	confirmationChan chan *ConfirmationRequest,
	interaction UserInteraction,
) *NpmRegistryInterceptor {
	i := &NpmRegistryInterceptor{
		baseRegistryInterceptor: baseRegistryInterceptor{
			analyzer:         analyzer,
			cache:            cache,
			statsCollector:   statsCollector,
			confirmationChan: confirmationChan,
			interaction:      interaction,
		},
		state: state,
	}

	i.intercept = proxy.InterceptRequests(state, i.blockKnownMalware, i.enforceMinimumPackageAge)

	return i
}

// Name returns the interceptor name for logging
func (i *NpmRegistryInterceptor) Name() string {
	return "npm-registry-interceptor"
}

// ShouldIntercept determines if this interceptor should handle the given request
func (i *NpmRegistryInterceptor) ShouldIntercept(ctx *proxy.RequestContext) bool {
	return npmRegistryDomains.ContainsHostname(ctx.Hostname)
}

// HandleRequest processes the request and returns response action
// We take a fail-open approach here, allowing requests that we can't parse the package information from the URL.
func (i *NpmRegistryInterceptor) HandleRequest(ctx *proxy.RequestContext) (*proxy.InterceptorResponse, error) {
	log.Debugf("[%s] Handling NPM registry request: %s", ctx.RequestID, ctx.URL.Path)

	handler, err := i.intercept.HandleRequest(ctx)
	if err != nil {
		log.Errorf("[%s] npm interception setup failed, allowing request: %v", ctx.RequestID, err)
		return &proxy.InterceptorResponse{Action: proxy.ActionAllow}, nil
	}

	return handler.InterceptorResponse(ctx), nil
}

// blockKnownMalware gates tarball downloads on the malware analyzer verdict.
func (i *NpmRegistryInterceptor) blockKnownMalware(ic *proxy.InterceptionContext) error {
	ctx := ic.Request()

	config := npmRegistryDomains.GetConfigForHostname(ctx.Hostname)
	if config == nil {
		// Shouldn't happen if ShouldIntercept is working correctly
		log.Warnf("[%s] No registry config found for hostname: %s", ctx.RequestID, ctx.Hostname)
		return nil
	}

	if !config.SupportedForAnalysis {
		log.Debugf("[%s] Skipping analysis for %s registry (not supported for analysis): %s",
			ctx.RequestID, config.Host, ctx.URL.String())
		return nil
	}

	if classifyNpmURLPath(ctx.URL.Path) != npmURLKindTarball {
		return nil
	}

	pkgInfo, err := config.Parser.ParseURL(ctx.URL.Path)
	if err != nil {
		log.Warnf("[%s] Failed to parse NPM registry URL %s for %s: %v",
			ctx.RequestID, ctx.URL.Path, config.Host, err)
		return nil
	}

	// A URL we cannot derive a concrete (name, version) from is never
	// treated as malicious.
	if !pkgInfo.IsFileDownload() || pkgInfo.GetName() == "" || pkgInfo.GetVersion() == "" {
		log.Debugf("[%s] Skipping analysis for non-tarball request: %s", ctx.RequestID, pkgInfo.GetName())
		return nil
	}

	result, err := i.analyzePackage(ctx, packagev1.Ecosystem_ECOSYSTEM_NPM, pkgInfo.GetName(), pkgInfo.GetVersion())
	if err != nil {
		log.Errorf("[%s] Failed to analyze package %s@%s: %v", ctx.RequestID, pkgInfo.GetName(), pkgInfo.GetVersion(), err)
		return nil
	}

	i.applyAnalysisResult(ic, packagev1.Ecosystem_ECOSYSTEM_NPM, pkgInfo.GetName(), pkgInfo.GetVersion(), result)
	return nil
}

// enforceMinimumPackageAge wires the packument rewriter for metadata
// requests. Special endpoints (search, dist-tag mutation, ping, ...) never
// carry a packument and pass through untouched.
func (i *NpmRegistryInterceptor) enforceMinimumPackageAge(ic *proxy.InterceptionContext) error {
	ctx := ic.Request()

	config := npmRegistryDomains.GetConfigForHostname(ctx.Hostname)
	if config == nil || !config.SupportedForAnalysis {
		return nil
	}

	if classifyNpmURLPath(ctx.URL.Path) != npmURLKindMetadata {
		return nil
	}

	pkgInfo, err := config.Parser.ParseURL(ctx.URL.Path)
	if err != nil {
		log.Warnf("[%s] Failed to parse NPM registry URL %s for %s: %v",
			ctx.RequestID, ctx.URL.Path, config.Host, err)
		return nil
	}

	log.Debugf("[%s] Wiring minimum package age filter for packument request: %s", ctx.RequestID, pkgInfo.GetName())

	// The abbreviated install-v1 packument omits the "time" field the age
	// filter needs, so ask upstream for the full document.
	if strings.Contains(ctx.Headers.Get("Accept"), npmInstallV1AcceptHeader) {
		ic.ModifyRequestHeaders(coerceNpmAcceptHeader)
	}

	ic.ModifyBody(rewriteNpmPackumentForMinimumAge(pkgInfo.GetName(), i.state))
	return nil
}
