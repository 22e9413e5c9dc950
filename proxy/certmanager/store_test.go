package certmanager

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadCA(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, CACertFileName)
	keyPath := filepath.Join(dir, CAKeyFileName)

	ca, err := GenerateCA(DefaultCertManagerConfig())
	require.NoError(t, err)

	require.NoError(t, SaveCA(ca, certPath, keyPath))

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "private key must not be world readable")

	loaded, err := LoadCA(certPath, keyPath)
	require.NoError(t, err)

	assert.Equal(t, ca.Certificate, loaded.Certificate)
	assert.Equal(t, ca.X509Cert.SerialNumber, loaded.X509Cert.SerialNumber)
	assert.NotNil(t, loaded.PrivKey)
}

func TestLoadOrGenerateCAPersistsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, CACertFileName)
	keyPath := filepath.Join(dir, CAKeyFileName)

	first, err := LoadOrGenerateCA(DefaultCertManagerConfig(), certPath, keyPath)
	require.NoError(t, err)

	second, err := LoadOrGenerateCA(DefaultCertManagerConfig(), certPath, keyPath)
	require.NoError(t, err)

	assert.Equal(t, first.X509Cert.SerialNumber, second.X509Cert.SerialNumber,
		"second invocation must reuse the persisted CA")
}

func TestLoadOrGenerateCAReplacesCorruptCA(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, CACertFileName)
	keyPath := filepath.Join(dir, CAKeyFileName)

	require.NoError(t, os.WriteFile(certPath, []byte("not a certificate"), 0o644))
	require.NoError(t, os.WriteFile(keyPath, []byte("not a key"), 0o600))

	ca, err := LoadOrGenerateCA(DefaultCertManagerConfig(), certPath, keyPath)
	require.NoError(t, err)
	assert.True(t, ca.X509Cert.IsCA)

	loaded, err := LoadCA(certPath, keyPath)
	require.NoError(t, err)
	assert.Equal(t, ca.X509Cert.SerialNumber, loaded.X509Cert.SerialNumber)
}

func TestWriteCombinedBundleContainsRoot(t *testing.T) {
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, CombinedBundleFileName)

	ca, err := GenerateCA(DefaultCertManagerConfig())
	require.NoError(t, err)

	require.NoError(t, WriteCombinedBundle(ca, bundlePath))

	bundle, err := os.ReadFile(bundlePath)
	require.NoError(t, err)

	assert.True(t, bytes.Contains(bundle, ca.Certificate),
		"combined bundle must end with the local root certificate")
}
