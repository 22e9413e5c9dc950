package interceptors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/safedep/dry/log"
	"github.com/safe-chain/guard/config"
	"github.com/safe-chain/guard/proxy"
)

const npmInstallV1AcceptHeader = "application/vnd.npm.install-v1+json"

// coerceNpmAcceptHeader rewrites the npm install-protocol Accept header to plain
// JSON. The abbreviated install-v1 packument omits the "time" field we need to
// enforce the minimum package age policy, so we always ask upstream for the
// full document.
func coerceNpmAcceptHeader(headers http.Header) http.Header {
	if strings.Contains(headers.Get("Accept"), npmInstallV1AcceptHeader) {
		headers.Set("Accept", "application/json")
	}

	return headers
}

// npmPackumentTimestampLayout covers the ISO8601 timestamps npm registry emits
// in a packument's "time" map (millisecond precision, "Z" suffix).
var npmPackumentTimestampLayouts = []string{time.RFC3339Nano, time.RFC3339}

func parseNpmPackumentTimestamp(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range npmPackumentTimestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, lastErr
}

// npmMinimumAgeExemptionKey returns the key under which a package name is
// checked against the minimum-age exemption list. For scoped packages this is
// the scope itself (e.g. "@mycorp"), not "@mycorp/package" - an exemption is
// granted to the whole scope, matching how private/internal scopes are usually
// configured.
func npmMinimumAgeExemptionKey(packageName string) string {
	if !strings.HasPrefix(packageName, "@") {
		return packageName
	}

	scope, _, found := strings.Cut(packageName, "/")
	if !found {
		return packageName
	}

	return scope
}

func isNpmMinimumAgeExempt(packageName string, exemptScopes []string) bool {
	key := npmMinimumAgeExemptionKey(packageName)
	for _, exempt := range exemptScopes {
		if exempt == key {
			return true
		}
	}

	return false
}

// rewriteNpmPackumentForMinimumAge builds the body modifier that enforces
// the minimum package age policy on an npm packument (the full-metadata
// document returned from e.g. GET /lodash). Versions published more recently
// than the configured cutoff are removed from "time", "versions" and
// "dist-tags", and "dist-tags.latest" is recomputed if it pointed at a removed
// version. Any failure leaves the original response untouched - this is a
// defense-in-depth filter, not a correctness-critical transform, so we never
// want a parsing bug to break installs.
func rewriteNpmPackumentForMinimumAge(packageName string, state *proxy.StateCollector) proxy.BodyModifierFunc {
	return func(body []byte, headers http.Header) ([]byte, error) {
		cfg := config.Get().Config

		if cfg.SkipMinimumPackageAge {
			return body, nil
		}

		if isNpmMinimumAgeExempt(packageName, cfg.MinimumPackageAgeExemptScopes) {
			return body, nil
		}

		if !strings.Contains(strings.ToLower(headers.Get("Content-Type")), "application/json") {
			return body, nil
		}

		if len(body) == 0 {
			return body, nil
		}

		filtered, suppressed, err := filterNpmPackumentBody(body, cfg.MinimumPackageAgeHours)
		if err != nil {
			log.Warnf("Failed to apply minimum package age filter to %s packument: %v", packageName, err)
			return body, nil
		}

		if !suppressed {
			return body, nil
		}

		if state != nil {
			state.RecordSuppressedVersions()
		}

		// The stored validators no longer match the rewritten body, and a
		// cached full packument would leak the suppressed versions on the
		// next install.
		headers.Del("Etag")
		headers.Del("Last-Modified")
		headers.Del("Cache-Control")

		return filtered, nil
	}
}

// filterNpmPackumentBody parses an npm packument and removes versions newer
// than minimumAgeHours. It returns the re-encoded body and whether any version
// was actually removed.
func filterNpmPackumentBody(body []byte, minimumAgeHours int) ([]byte, bool, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false, fmt.Errorf("invalid packument JSON: %w", err)
	}

	timeRaw, ok := doc["time"]
	if !ok {
		return nil, false, fmt.Errorf("packument missing \"time\" field")
	}

	versionsRaw, ok := doc["versions"]
	if !ok {
		return nil, false, fmt.Errorf("packument missing \"versions\" field")
	}

	var times map[string]string
	if err := json.Unmarshal(timeRaw, &times); err != nil {
		return nil, false, fmt.Errorf("invalid \"time\" field: %w", err)
	}

	var versions map[string]json.RawMessage
	if err := json.Unmarshal(versionsRaw, &versions); err != nil {
		return nil, false, fmt.Errorf("invalid \"versions\" field: %w", err)
	}

	distTags := map[string]string{}
	if distTagsRaw, ok := doc["dist-tags"]; ok {
		if err := json.Unmarshal(distTagsRaw, &distTags); err != nil {
			return nil, false, fmt.Errorf("invalid \"dist-tags\" field: %w", err)
		}
	}

	cutoff := time.Now().Add(-time.Duration(minimumAgeHours) * time.Hour)

	removed := map[string]bool{}
	for version, published := range times {
		if version == "created" || version == "modified" {
			continue
		}

		// A version present in "versions" but missing a matching "time" entry is
		// left alone: we have no published timestamp to judge it by, and removing
		// it on that basis alone risks dropping a legitimate release the registry
		// simply didn't backfill a timestamp for.
		ts, err := parseNpmPackumentTimestamp(published)
		if err != nil {
			continue
		}

		if ts.After(cutoff) {
			removed[version] = true
		}
	}

	if len(removed) == 0 {
		return body, false, nil
	}

	for version := range removed {
		delete(times, version)
		delete(versions, version)
	}

	for tag, version := range distTags {
		if removed[version] {
			delete(distTags, tag)
		}
	}

	if _, stillSet := distTags["latest"]; !stillSet {
		if newLatest := recomputeNpmLatest(versions, times); newLatest != "" {
			distTags["latest"] = newLatest
		}
	}

	timeJSON, err := json.Marshal(times)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-encode \"time\": %w", err)
	}

	versionsJSON, err := json.Marshal(versions)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-encode \"versions\": %w", err)
	}

	distTagsJSON, err := json.Marshal(distTags)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-encode \"dist-tags\": %w", err)
	}

	doc["time"] = timeJSON
	doc["versions"] = versionsJSON
	doc["dist-tags"] = distTagsJSON

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-encode packument: %w", err)
	}

	return out, true, nil
}

// recomputeNpmLatest picks a replacement "latest" from the remaining versions
// once the previous latest was itself suppressed. Full releases are preferred
// over prereleases; ties (equal publish timestamp, or no usable timestamp at
// all) are broken by the greater version string, which is arbitrary but
// deterministic.
func recomputeNpmLatest(versions map[string]json.RawMessage, times map[string]string) string {
	var fullReleases, prereleases []string
	for version := range versions {
		if strings.Contains(version, "-") {
			prereleases = append(prereleases, version)
		} else {
			fullReleases = append(fullReleases, version)
		}
	}

	candidates := fullReleases
	if len(candidates) == 0 {
		candidates = prereleases
	}

	var best string
	var bestTime time.Time
	for _, version := range candidates {
		ts, err := parseNpmPackumentTimestamp(times[version])
		if err != nil {
			ts = time.Time{}
		}

		switch {
		case best == "":
			best, bestTime = version, ts
		case ts.After(bestTime):
			best, bestTime = version, ts
		case ts.Equal(bestTime) && version > best:
			best = version
		}
	}

	return best
}
