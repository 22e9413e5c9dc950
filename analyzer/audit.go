package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	packagev1 "buf.build/gen/go/safedep/api/protocolbuffers/go/safedep/messages/package/v1"
	"github.com/safedep/dry/log"
)

// ChangeType classifies a dependency update produced by a package manager's
// dependency resolver.
type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeModify ChangeType = "change"
	ChangeRemove ChangeType = "remove"
)

// PackageChange is a single dependency update about to be applied by the
// wrapped package manager command.
type PackageChange struct {
	Name    string
	Version string
	Type    ChangeType
}

// DisallowedChange is a package change rejected by the audit, with the
// analyzer's reason attached.
type DisallowedChange struct {
	PackageChange
	Reason string
}

// AuditResult is the outcome of auditing a set of dependency updates.
// IsAllowed holds exactly when Disallowed is empty.
type AuditResult struct {
	Allowed    []PackageChange
	Disallowed []DisallowedChange
	IsAllowed  bool
}

// ErrAuditTimeout is returned when the dependency audit does not complete
// within its configured wall-clock budget. Callers treat this as fatal.
var ErrAuditTimeout = errors.New("dependency audit timed out")

// AuditCounters tracks process-wide audit statistics. Counters are
// monotonically non-decreasing during a run and satisfy
// total == safe + malware at all times.
type AuditCounters struct {
	mu      sync.Mutex
	total   int
	safe    int
	malware int
}

// NewAuditCounters creates a zeroed counter set.
func NewAuditCounters() *AuditCounters {
	return &AuditCounters{}
}

func (c *AuditCounters) recordSafe() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.safe++
}

func (c *AuditCounters) recordMalware() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.malware++
}

// Snapshot returns the current (total, safe, malware) counter values.
func (c *AuditCounters) Snapshot() (total, safe, malware int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.total, c.safe, c.malware
}

// AuditorConfig configures a dependency change auditor.
type AuditorConfig struct {
	// Ecosystem the audited changes belong to.
	Ecosystem packagev1.Ecosystem

	// Timeout is the wall-clock budget for a single AuditChanges call.
	// Exceeding it is fatal to the run.
	Timeout time.Duration
}

// DefaultAuditorConfig returns an auditor configuration with a generous
// pre-scan budget.
func DefaultAuditorConfig(ecosystem packagev1.Ecosystem) AuditorConfig {
	return AuditorConfig{
		Ecosystem: ecosystem,
		Timeout:   2 * time.Minute,
	}
}

// Auditor pre-scans dependency updates against the malware oracle before the
// wrapped package manager is allowed to run.
type Auditor struct {
	config   AuditorConfig
	analyzer PackageVersionAnalyzer
	counters *AuditCounters
}

// NewAuditor creates an auditor over the given analyzer. Counters may be
// shared across audits; a nil counter set gets a private one.
func NewAuditor(config AuditorConfig, analyzer PackageVersionAnalyzer, counters *AuditCounters) *Auditor {
	if counters == nil {
		counters = NewAuditCounters()
	}

	return &Auditor{
		config:   config,
		analyzer: analyzer,
		counters: counters,
	}
}

// Counters returns the counter set this auditor reports into.
func (a *Auditor) Counters() *AuditCounters {
	return a.counters
}

// AuditChanges checks every pending dependency update against the oracle.
// Removals never consult the oracle: a package leaving the tree cannot
// introduce malware. An unreachable oracle or an exceeded time budget returns
// an error, which callers treat as fatal (the wrapped command must not run).
func (a *Auditor) AuditChanges(ctx context.Context, changes []PackageChange) (*AuditResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	result := &AuditResult{}

	for _, change := range changes {
		if change.Type == ChangeRemove {
			result.Allowed = append(result.Allowed, change)
			continue
		}

		verdict, err := a.analyzer.Analyze(ctx, &packagev1.PackageVersion{
			Package: &packagev1.Package{
				Ecosystem: a.config.Ecosystem,
				Name:      change.Name,
			},
			Version: change.Version,
		})
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w after %s", ErrAuditTimeout, a.config.Timeout)
			}

			return nil, fmt.Errorf("malware oracle unreachable: %w", err)
		}

		if verdict.Action == ActionBlock {
			log.Warnf("Pre-scan flagged %s@%s: %s", change.Name, change.Version, verdict.Summary)

			a.counters.recordMalware()
			result.Disallowed = append(result.Disallowed, DisallowedChange{
				PackageChange: change,
				Reason:        verdict.Summary,
			})
			continue
		}

		a.counters.recordSafe()
		result.Allowed = append(result.Allowed, change)
	}

	result.IsAllowed = len(result.Disallowed) == 0

	return result, nil
}
