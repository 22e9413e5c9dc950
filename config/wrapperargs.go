package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Wrapper flags are recognized anywhere in the argument list, including after
// the package manager subcommand, and are stripped before the remaining
// arguments are forwarded to the wrapped tool. The prefix match is
// case-insensitive.
const wrapperFlagPrefix = "--safe-chain-"

// Logging verbosity levels accepted by --safe-chain-logging.
const (
	LoggingSilent  = "silent"
	LoggingNormal  = "normal"
	LoggingVerbose = "verbose"
)

// loggingLevel backs the --safe-chain-logging wrapper flag. When the flag is
// repeated, the last occurrence wins.
var loggingLevel = LoggingSilent

// LoggingLevel returns the verbosity requested via --safe-chain-logging.
func LoggingLevel() string {
	return loggingLevel
}

// ExtractWrapperArgs strips wrapper flags from the argument list and applies
// them to the global configuration. The returned slice contains only the
// arguments meant for the wrapped package manager.
func ExtractWrapperArgs(args []string) ([]string, error) {
	forwarded := make([]string, 0, len(args))

	for _, arg := range args {
		lower := strings.ToLower(arg)

		if arg == "--include-python" {
			globalConfig.Config.IncludePython = true
			continue
		}

		if !strings.HasPrefix(lower, wrapperFlagPrefix) {
			forwarded = append(forwarded, arg)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimPrefix(lower, wrapperFlagPrefix), "=")
		switch name {
		case "logging":
			if !hasValue {
				return nil, fmt.Errorf("--safe-chain-logging requires a value (silent, normal or verbose)")
			}

			switch value {
			case LoggingSilent, LoggingNormal, LoggingVerbose:
				loggingLevel = value
			default:
				return nil, fmt.Errorf("invalid --safe-chain-logging value: %s", value)
			}

		case "skip-minimum-package-age":
			globalConfig.Config.SkipMinimumPackageAge = true

		case "minimum-package-age-hours":
			if !hasValue {
				return nil, fmt.Errorf("--safe-chain-minimum-package-age-hours requires a value")
			}

			hours, err := strconv.Atoi(value)
			if err != nil || hours < 0 {
				return nil, fmt.Errorf("invalid --safe-chain-minimum-package-age-hours value: %s", value)
			}

			globalConfig.Config.MinimumPackageAgeHours = hours

		default:
			// Unknown wrapper flags are stripped so they never leak into the
			// wrapped package manager's argument list.
		}
	}

	return forwarded, nil
}
