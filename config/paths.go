package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// This file centralizes all path-related helpers for the config package.
// It standardizes where the guard stores configuration and related artifacts,
// so other packages (e.g., internal/alias) can rely on a single source of truth.

const (
	guardConfigName = "config"
	guardConfigType = "yml"
	guardConfigPath = "safe-chain/guard"

	GUARD_CONFIG_DIR_ENV = "GUARD_CONFIG_DIR"
)

// defaultRcFileName is the default name for the shell RC file that contains guard aliases.
const (
	defaultRcFileName = "guard.rc"
)

// ConfigDir returns the base application config directory.
// If the GUARD_CONFIG_DIR environment variable is set, its value is used as the base before appending safe-chain/guard.
// Otherwise, the defaults are:
// - macOS:   ~/Library/Application Support/safe-chain/guard
// - Linux:   ~/.config/safe-chain/guard
// - Windows: %AppData%\safe-chain\guard
func ConfigDir() (string, error) {
	dir := os.Getenv(GUARD_CONFIG_DIR_ENV)
	if dir != "" {
		return filepath.Join(dir, guardConfigPath), nil
	}

	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to retrieve user config directory: %w", err)
	}

	return filepath.Join(userConfigDir, guardConfigPath), nil
}

// createConfigDir ensures the application config directory exists and returns its path.
func createConfigDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return dir, nil
}

// ConfigFilePath returns the absolute path to the main guard config file (e.g., config.yml),
// without creating any directories.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("%s.%s", guardConfigName, guardConfigType)), nil
}

// CACertPath returns the absolute path to the persisted proxy root CA
// certificate under the app config directory.
func CACertPath() (string, error) {
	dir, err := createConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ca-cert.pem"), nil
}

// CAKeyPath returns the absolute path to the persisted proxy root CA private
// key under the app config directory.
func CAKeyPath() (string, error) {
	dir, err := createConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ca-key.pem"), nil
}

// CABundlePath returns the absolute path of the combined CA bundle handed to
// Python clients.
func CABundlePath() (string, error) {
	dir, err := createConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ca-bundle.pem"), nil
}

// MalwareDatasetPath returns the absolute path of the local malware dataset
// consumed by the offline oracle, without requiring the file to exist.
func MalwareDatasetPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "malware-dataset.json"), nil
}

// RcFileName returns the default RC file name used for guard aliases.
func RcFileName() string {
	return defaultRcFileName
}

// RcFilePath returns the absolute path to the guard RC file under the app config directory,
// without creating any directories.
func RcFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultRcFileName), nil
}
