package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	packagev1 "buf.build/gen/go/safedep/api/protocolbuffers/go/safedep/messages/package/v1"
	"github.com/safedep/dry/log"
)

// malwareDatasetEntry is a single record in the local malware dataset file.
// An empty or "*" version marks every version of the package as malicious.
type malwareDatasetEntry struct {
	Ecosystem string `json:"ecosystem"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Summary   string `json:"summary,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// LocalMalwareOracleConfig configures the file backed malware oracle.
type LocalMalwareOracleConfig struct {
	// DatasetPath is the JSON file holding known-malicious (package, version)
	// records. The file is read once when the oracle is created.
	DatasetPath string
}

// localMalwareOracle answers malware lookups from a dataset loaded once at
// startup. It is the offline counterpart to the remote malysis analyzers and
// satisfies the same PackageVersionAnalyzer contract.
type localMalwareOracle struct {
	exact    map[string]malwareDatasetEntry
	wildcard map[string]malwareDatasetEntry
}

var _ PackageVersionAnalyzer = (*localMalwareOracle)(nil)

// NewLocalMalwareOracle loads the dataset from disk and returns an oracle
// over it. A missing dataset file is an error: the caller decides whether to
// fall back to a remote analyzer.
func NewLocalMalwareOracle(config LocalMalwareOracleConfig) (PackageVersionAnalyzer, error) {
	data, err := os.ReadFile(config.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read malware dataset: %w", err)
	}

	var entries []malwareDatasetEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse malware dataset: %w", err)
	}

	oracle := &localMalwareOracle{
		exact:    make(map[string]malwareDatasetEntry),
		wildcard: make(map[string]malwareDatasetEntry),
	}

	for _, entry := range entries {
		if entry.Name == "" {
			continue
		}

		if entry.Version == "" || entry.Version == "*" {
			oracle.wildcard[oracleKey(entry.Ecosystem, entry.Name, "")] = entry
			continue
		}

		oracle.exact[oracleKey(entry.Ecosystem, entry.Name, entry.Version)] = entry
	}

	log.Debugf("Loaded malware dataset with %d exact and %d wildcard entries",
		len(oracle.exact), len(oracle.wildcard))

	return oracle, nil
}

func (o *localMalwareOracle) Name() string {
	return "local-malware-oracle"
}

func (o *localMalwareOracle) Analyze(ctx context.Context, packageVersion *packagev1.PackageVersion) (*PackageVersionAnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ecosystem := ecosystemKey(packageVersion.GetPackage().GetEcosystem())
	name := packageVersion.GetPackage().GetName()
	version := packageVersion.GetVersion()

	entry, found := o.lookup(ecosystem, name, version)

	result := &PackageVersionAnalysisResult{
		PackageVersion: packageVersion,
		Action:         ActionAllow,
	}

	if found {
		result.Action = ActionBlock
		result.Summary = entry.Summary
		result.ReferenceURL = entry.Reference

		if result.Summary == "" {
			result.Summary = "Package is listed in the known-malware dataset"
		}
	}

	return result, nil
}

func (o *localMalwareOracle) lookup(ecosystem, name, version string) (malwareDatasetEntry, bool) {
	if entry, ok := o.exact[oracleKey(ecosystem, name, version)]; ok {
		return entry, true
	}

	entry, ok := o.wildcard[oracleKey(ecosystem, name, "")]
	return entry, ok
}

func oracleKey(ecosystem, name, version string) string {
	return strings.ToLower(ecosystem) + "|" + name + "|" + version
}

func ecosystemKey(ecosystem packagev1.Ecosystem) string {
	switch ecosystem {
	case packagev1.Ecosystem_ECOSYSTEM_NPM:
		return "npm"
	case packagev1.Ecosystem_ECOSYSTEM_PYPI:
		return "pypi"
	default:
		return strings.ToLower(strings.TrimPrefix(ecosystem.String(), "ECOSYSTEM_"))
	}
}
