package interceptors

import (
	"fmt"

	packagev1 "buf.build/gen/go/safedep/api/protocolbuffers/go/safedep/messages/package/v1"
	"github.com/safe-chain/guard/analyzer"
	"github.com/safe-chain/guard/proxy"
)

// InterceptorFactory creates ecosystem-specific interceptors for the proxy.
// It owns the stats collector so that every ecosystem interceptor it builds
// reports into the same aggregate, and shares the proxy controller's state
// collector so block events land in the run-level bookkeeping.
type InterceptorFactory struct {
	analyzer         analyzer.PackageVersionAnalyzer
	cache            AnalysisCache
	statsCollector   *AnalysisStatsCollector
	state            *proxy.StateCollector
	confirmationChan chan *ConfirmationRequest
	interaction      UserInteraction
}

// NewInterceptorFactory creates a new interceptor factory with shared dependencies
func NewInterceptorFactory(
	analyzer analyzer.PackageVersionAnalyzer,
	cache AnalysisCache,
	state *proxy.StateCollector,
	confirmationChan chan *ConfirmationRequest,
	interaction UserInteraction,
) *InterceptorFactory {
	return &InterceptorFactory{
		analyzer:         analyzer,
		cache:            cache,
		statsCollector:   NewAnalysisStatsCollector(),
		state:            state,
		confirmationChan: confirmationChan,
		interaction:      interaction,
	}
}

// CreateInterceptor creates an interceptor for the specified ecosystem
// Returns an error if the ecosystem is not supported for proxy-based interception
func (f *InterceptorFactory) CreateInterceptor(ecosystem packagev1.Ecosystem) (proxy.Interceptor, error) {
	switch ecosystem {
	case packagev1.Ecosystem_ECOSYSTEM_NPM:
		return NewNpmRegistryInterceptor(
			f.analyzer,
			f.cache,
			f.statsCollector,
			f.state,
			f.confirmationChan,
			f.interaction,
		), nil

	case packagev1.Ecosystem_ECOSYSTEM_PYPI:
		return NewPypiRegistryInterceptor(
			f.analyzer,
			f.cache,
			f.statsCollector,
			f.state,
			f.confirmationChan,
			f.interaction,
		), nil

	default:
		return nil, fmt.Errorf("proxy-based interception not yet supported for ecosystem: %s", ecosystem.String())
	}
}

// Stats returns the stats collector shared by every interceptor this factory creates
func (f *InterceptorFactory) Stats() *AnalysisStatsCollector {
	return f.statsCollector
}

// SupportedEcosystems returns a list of ecosystems that support proxy-based interception
func SupportedEcosystems() []packagev1.Ecosystem {
	return []packagev1.Ecosystem{
		packagev1.Ecosystem_ECOSYSTEM_NPM,
		packagev1.Ecosystem_ECOSYSTEM_PYPI,
	}
}

// IsSupported checks if an ecosystem supports proxy-based interception
func IsSupported(ecosystem packagev1.Ecosystem) bool {
	for _, supported := range SupportedEcosystems() {
		if ecosystem == supported {
			return true
		}
	}

	return false
}
