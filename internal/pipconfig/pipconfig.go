// Package pipconfig materializes the pip configuration file handed to
// wrapped Python package managers. pip only honors a single config file via
// PIP_CONFIG_FILE, so the user's own configuration is merged into a fresh
// temporary file instead of being mutated in place.
package pipconfig

import (
	"fmt"
	"os"

	"github.com/safedep/dry/log"
	"gopkg.in/ini.v1"
)

const globalSection = "global"

// Materialize writes a pip config file whose [global] section points pip at
// the proxy and the combined CA bundle. When userConfigPath names an existing
// file its contents are carried over first, so user settings survive unless
// they collide with the proxy-required keys. The returned path is a freshly
// created temporary file; callers must Cleanup it when the run ends.
func Materialize(userConfigPath, certPath, proxyURL string) (string, error) {
	cfg := ini.Empty()

	if userConfigPath != "" {
		if err := cfg.Append(userConfigPath); err != nil {
			// A broken user config must not break the install; pip itself
			// would have rejected it anyway.
			log.Warnf("Failed to merge user pip config %s: %v", userConfigPath, err)
			cfg = ini.Empty()
		}
	}

	section := cfg.Section(globalSection)
	section.Key("cert").SetValue(certPath)
	section.Key("proxy").SetValue(proxyURL)

	tmp, err := os.CreateTemp("", "safe-chain-pip-*.conf")
	if err != nil {
		return "", fmt.Errorf("failed to create pip config file: %w", err)
	}

	if _, err := cfg.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write pip config file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close pip config file: %w", err)
	}

	return tmp.Name(), nil
}

// Cleanup removes a previously materialized pip config file.
func Cleanup(path string) {
	if path == "" {
		return
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to remove pip config file %s: %v", path, err)
	}
}
