package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	packagev1 "buf.build/gen/go/safedep/api/protocolbuffers/go/safedep/messages/package/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDataset(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "malware-dataset.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func npmPackageVersion(name, version string) *packagev1.PackageVersion {
	return &packagev1.PackageVersion{
		Package: &packagev1.Package{
			Ecosystem: packagev1.Ecosystem_ECOSYSTEM_NPM,
			Name:      name,
		},
		Version: version,
	}
}

func TestLocalMalwareOracle(t *testing.T) {
	path := writeDataset(t, `[
		{"ecosystem": "npm", "name": "malicious-package", "version": "1.0.0", "summary": "credential stealer"},
		{"ecosystem": "npm", "name": "always-bad", "version": "*"},
		{"ecosystem": "pypi", "name": "evil-dist", "version": "2.0.0"}
	]`)

	oracle, err := NewLocalMalwareOracle(LocalMalwareOracleConfig{DatasetPath: path})
	require.NoError(t, err)

	tests := []struct {
		name    string
		pv      *packagev1.PackageVersion
		blocked bool
	}{
		{
			name:    "exact match is blocked",
			pv:      npmPackageVersion("malicious-package", "1.0.0"),
			blocked: true,
		},
		{
			name:    "other version of listed package is allowed",
			pv:      npmPackageVersion("malicious-package", "2.0.0"),
			blocked: false,
		},
		{
			name:    "wildcard entry blocks every version",
			pv:      npmPackageVersion("always-bad", "0.0.1"),
			blocked: true,
		},
		{
			name:    "unlisted package is allowed",
			pv:      npmPackageVersion("lodash", "4.17.21"),
			blocked: false,
		},
		{
			name: "ecosystem is part of the key",
			pv: &packagev1.PackageVersion{
				Package: &packagev1.Package{
					Ecosystem: packagev1.Ecosystem_ECOSYSTEM_NPM,
					Name:      "evil-dist",
				},
				Version: "2.0.0",
			},
			blocked: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := oracle.Analyze(context.Background(), tt.pv)
			require.NoError(t, err)

			if tt.blocked {
				assert.Equal(t, ActionBlock, result.Action)
				assert.NotEmpty(t, result.Summary)
			} else {
				assert.Equal(t, ActionAllow, result.Action)
			}
		})
	}
}

func TestLocalMalwareOracleMissingDataset(t *testing.T) {
	_, err := NewLocalMalwareOracle(LocalMalwareOracleConfig{
		DatasetPath: filepath.Join(t.TempDir(), "does-not-exist.json"),
	})
	assert.Error(t, err)
}

func TestLocalMalwareOracleInvalidDataset(t *testing.T) {
	path := writeDataset(t, `{"not": "an array"}`)

	_, err := NewLocalMalwareOracle(LocalMalwareOracleConfig{DatasetPath: path})
	assert.Error(t, err)
}
