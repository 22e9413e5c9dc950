package proxy

import (
	"sync"
)

// BlockedRequest records a single refused package download.
type BlockedRequest struct {
	PackageName string
	Version     string
	URL         string
}

// StateCollector aggregates run-wide proxy state: the list of blocked
// downloads and whether any metadata response had versions suppressed by the
// minimum package age policy. It is the sink for MalwareBlockedEvents and is
// safe for concurrent use by the per-connection handlers.
type StateCollector struct {
	mu                    sync.Mutex
	blockedRequests       []BlockedRequest
	hasSuppressedVersions bool
}

var _ MalwareEventSink = (*StateCollector)(nil)

// NewStateCollector creates an empty state collector.
func NewStateCollector() *StateCollector {
	return &StateCollector{}
}

// MalwareBlocked records a block event. Implements MalwareEventSink.
func (s *StateCollector) MalwareBlocked(event MalwareBlockedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blockedRequests = append(s.blockedRequests, BlockedRequest{
		PackageName: event.PackageName,
		Version:     event.Version,
		URL:         event.TargetURL,
	})
}

// RecordSuppressedVersions marks that at least one metadata response had
// recently published versions filtered out.
func (s *StateCollector) RecordSuppressedVersions() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hasSuppressedVersions = true
}

// HasSuppressedVersions reports whether any metadata response served during
// this run had versions removed by the minimum package age policy.
func (s *StateCollector) HasSuppressedVersions() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hasSuppressedVersions
}

// BlockedRequests returns a copy of the blocked download records.
func (s *StateCollector) BlockedRequests() []BlockedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocked := make([]BlockedRequest, len(s.blockedRequests))
	copy(blocked, s.blockedRequests)
	return blocked
}

// VerifyNoMaliciousPackages reports whether the run completed without a
// single blocked download.
func (s *StateCollector) VerifyNoMaliciousPackages() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.blockedRequests) == 0
}
