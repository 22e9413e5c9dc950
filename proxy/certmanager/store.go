package certmanager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/safedep/dry/log"
)

// On-disk file names for the persisted root CA under the application config
// directory.
const (
	CACertFileName = "ca-cert.pem"
	CAKeyFileName  = "ca-key.pem"
)

// LoadCA reads a persisted CA certificate and private key from disk.
func LoadCA(certPath, keyPath string) (*Certificate, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA private key: %w", err)
	}

	ca, err := parseCertificate(&Certificate{
		Certificate: certPEM,
		PrivateKey:  keyPEM,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse persisted CA: %w", err)
	}

	return ca, nil
}

// SaveCA persists the CA certificate and private key. Writes are atomic
// (temp file + rename) so a crash never leaves a half-written CA behind. The
// private key is only readable by the owning user.
func SaveCA(ca *Certificate, certPath, keyPath string) error {
	if err := os.MkdirAll(filepath.Dir(certPath), 0o755); err != nil {
		return fmt.Errorf("failed to create CA directory: %w", err)
	}

	if err := writeFileAtomic(certPath, ca.Certificate, 0o644); err != nil {
		return fmt.Errorf("failed to write CA certificate: %w", err)
	}

	if err := writeFileAtomic(keyPath, ca.PrivateKey, 0o600); err != nil {
		return fmt.Errorf("failed to write CA private key: %w", err)
	}

	return nil
}

// LoadOrGenerateCA returns the persisted CA, generating and persisting a
// fresh one when none exists or the existing one is expired (or close to it).
func LoadOrGenerateCA(config CertManagerConfig, certPath, keyPath string) (*Certificate, error) {
	ca, err := LoadCA(certPath, keyPath)
	if err == nil && !ca.IsExpired(30*24*time.Hour) {
		log.Debugf("Loaded persisted CA from %s", certPath)
		return ca, nil
	}

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Debugf("Persisted CA unusable (%v), generating a new one", err)
	}

	ca, err = GenerateCA(config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CA: %w", err)
	}

	if err := SaveCA(ca, certPath, keyPath); err != nil {
		return nil, err
	}

	log.Debugf("Generated and persisted new CA at %s", certPath)

	return ca, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := tmp.Chmod(perm); err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
