package packagemanager

import (
	"fmt"
	"strconv"
	"strings"
)

// Poetry expresses version constraints with caret (^), tilde (~) and
// wildcard (*) operators that pip and the PyPI JSON API do not understand.
// The converters below rewrite them into standard PEP 440 range specifiers.

// parseVersionParts splits a dotted version into up to three numeric
// components, padding missing components with zero. Returns ok=false for
// non-numeric or empty input.
func parseVersionParts(version string) (parts [3]int, count int, ok bool) {
	if version == "" {
		return parts, 0, false
	}

	fields := strings.Split(version, ".")
	if len(fields) > 3 {
		return parts, 0, false
	}

	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 {
			return parts, 0, false
		}

		parts[i] = n
	}

	return parts, len(fields), true
}

// pypiConvertCaretConstraint converts a caret constraint body into a PEP 440
// range: the upper bound bumps the leftmost non-zero component.
// Example: "1.2.3" -> ">=1.2.3,<2.0.0", "0.2.3" -> ">=0.2.3,<0.3.0".
// Returns "" for invalid input.
func pypiConvertCaretConstraint(version string) string {
	parts, _, ok := parseVersionParts(version)
	if !ok {
		return ""
	}

	lower := fmt.Sprintf("%d.%d.%d", parts[0], parts[1], parts[2])

	var upper string
	switch {
	case parts[0] > 0:
		upper = fmt.Sprintf("%d.0.0", parts[0]+1)
	case parts[1] > 0:
		upper = fmt.Sprintf("0.%d.0", parts[1]+1)
	case parts[2] > 0:
		upper = fmt.Sprintf("0.0.%d", parts[2]+1)
	default:
		upper = "1.0.0"
	}

	return fmt.Sprintf(">=%s,<%s", lower, upper)
}

// pypiConvertTildeConstraint converts a tilde constraint body into a PEP 440
// range: with two or more components the minor version is bumped, with a
// single component the major version is.
// Example: "1.2.3" -> ">=1.2.3,<1.3.0", "2" -> ">=2.0.0,<3.0.0".
// Returns "" for invalid input.
func pypiConvertTildeConstraint(version string) string {
	parts, count, ok := parseVersionParts(version)
	if !ok {
		return ""
	}

	lower := fmt.Sprintf("%d.%d.%d", parts[0], parts[1], parts[2])

	var upper string
	if count == 1 {
		upper = fmt.Sprintf("%d.0.0", parts[0]+1)
	} else {
		upper = fmt.Sprintf("%d.%d.0", parts[0], parts[1]+1)
	}

	return fmt.Sprintf(">=%s,<%s", lower, upper)
}

// pypiConvertWildcardConstraint converts a wildcard constraint into a PEP
// 440 range. "*" matches everything, "X.*" bumps the major version, "X.Y.*"
// bumps the minor version. Returns "" for invalid input.
func pypiConvertWildcardConstraint(version string) string {
	if version == "*" {
		return ">=0.0.0"
	}

	base, ok := strings.CutSuffix(version, ".*")
	if !ok {
		return ""
	}

	parts, count, valid := parseVersionParts(base)
	if !valid || count > 2 {
		return ""
	}

	lower := fmt.Sprintf("%d.%d.%d", parts[0], parts[1], parts[2])

	var upper string
	if count == 1 {
		upper = fmt.Sprintf("%d.0.0", parts[0]+1)
	} else {
		upper = fmt.Sprintf("%d.%d.0", parts[0], parts[1]+1)
	}

	return fmt.Sprintf(">=%s,<%s", lower, upper)
}

// pypiConvertPoetryVersionConstraints rewrites a poetry dependency
// specification ("name@^1.2.3", "name[extras]~1.2", "name@2.*") into the
// equivalent standard specifier. Specifications already using standard
// operators pass through unchanged.
func pypiConvertPoetryVersionConstraints(input string) (string, error) {
	spec := strings.TrimSpace(input)
	if spec == "" {
		return "", fmt.Errorf("empty dependency specification")
	}

	// The name runs until the first character that cannot be part of a
	// package name, optionally followed by a bracketed extras list.
	end := 0
	for end < len(spec) && isPypiNameChar(spec[end]) {
		end++
	}

	name := spec[:end]
	rest := spec[end:]

	if strings.HasPrefix(rest, "[") {
		if close := strings.Index(rest, "]"); close >= 0 {
			name += rest[:close+1]
			rest = rest[close+1:]
		}
	}

	if name == "" || strings.HasPrefix(name, "[") {
		return "", fmt.Errorf("missing package name in %q", input)
	}

	rest = strings.TrimPrefix(rest, "@")
	if rest == "" {
		return name, nil
	}

	switch {
	case strings.HasPrefix(rest, "^"):
		converted := pypiConvertCaretConstraint(strings.TrimPrefix(rest, "^"))
		if converted == "" {
			return "", fmt.Errorf("invalid caret constraint in %q", input)
		}

		return name + converted, nil

	case strings.HasPrefix(rest, "~") && !strings.HasPrefix(rest, "~="):
		converted := pypiConvertTildeConstraint(strings.TrimPrefix(rest, "~"))
		if converted == "" {
			return "", fmt.Errorf("invalid tilde constraint in %q", input)
		}

		return name + converted, nil

	case strings.HasSuffix(rest, "*"):
		converted := pypiConvertWildcardConstraint(rest)
		if converted == "" {
			return "", fmt.Errorf("invalid wildcard constraint in %q", input)
		}

		return name + converted, nil

	default:
		// Standard PEP 440 specifiers pass through untouched.
		return name + rest, nil
	}
}

func isPypiNameChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.':
		return true
	default:
		return false
	}
}
