package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ZanzyTHEbar/errbuilder-go"
)

var (
	namePattern      = regexp.MustCompile(`^[a-z][a-z0-9-]{1,62}$`)
	configKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// normalizeRange maps an empty range to "*" and trims whitespace.
func normalizeRange(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "*"
	}
	return trimmed
}

// ParseRange parses a semver range such as ">=1.4.0, <2.0.0", "^1.2" or
// "1.x". An empty range matches every version.
func ParseRange(raw string) (*semver.Constraints, error) {
	parsed, err := semver.NewConstraint(normalizeRange(raw))
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid version range: %q", raw)).
			WithCause(err)
	}
	return parsed, nil
}

// ExactRange returns a range that matches only version.
func ExactRange(version string) string {
	return "=" + strings.TrimSpace(version)
}

// ValidName reports whether value is a valid module or component name.
func ValidName(value string) bool {
	return namePattern.MatchString(value)
}

// ValidConfigKey reports whether value is a valid configuration key.
func ValidConfigKey(value string) bool {
	return configKeyPattern.MatchString(value)
}
