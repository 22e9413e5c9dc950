package certmanager

import (
	"bytes"
	"fmt"
	"os"
	"runtime"

	"github.com/safedep/dry/log"
)

// CombinedBundleFileName is the on-disk name of the CA bundle handed to
// Python clients via SSL_CERT_FILE / REQUESTS_CA_BUNDLE / PIP_CERT.
const CombinedBundleFileName = "ca-bundle.pem"

// systemBundleCandidates are the well-known CA bundle locations checked when
// assembling the combined bundle. The first readable file wins.
var systemBundleCandidates = []string{
	"/etc/ssl/certs/ca-certificates.crt", // Debian/Ubuntu
	"/etc/pki/tls/certs/ca-bundle.crt",   // Fedora/RHEL
	"/etc/ssl/ca-bundle.pem",             // openSUSE
	"/etc/ssl/cert.pem",                  // macOS, Alpine, OpenBSD
}

// WriteCombinedBundle writes a CA bundle containing the platform's trusted
// roots followed by our own root certificate. Python HTTP clients replace
// (rather than extend) their trust store when pointed at a bundle, so the
// system roots must travel along or every non-intercepted HTTPS request from
// the child would fail verification.
func WriteCombinedBundle(ca *Certificate, path string) error {
	var bundle bytes.Buffer

	if systemRoots := readSystemBundle(); len(systemRoots) > 0 {
		bundle.Write(systemRoots)
		if !bytes.HasSuffix(systemRoots, []byte("\n")) {
			bundle.WriteByte('\n')
		}
	} else {
		log.Warnf("No system CA bundle found; combined bundle will only contain the local root")
	}

	bundle.Write(ca.Certificate)

	if err := writeFileAtomic(path, bundle.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write combined CA bundle: %w", err)
	}

	return nil
}

func readSystemBundle() []byte {
	if override := os.Getenv("SSL_CERT_FILE"); override != "" {
		if data, err := os.ReadFile(override); err == nil {
			return data
		}
	}

	if runtime.GOOS == "windows" {
		// No flat bundle file on Windows; the child falls back to our root
		// plus whatever its runtime ships.
		return nil
	}

	for _, candidate := range systemBundleCandidates {
		if data, err := os.ReadFile(candidate); err == nil {
			return data
		}
	}

	return nil
}
