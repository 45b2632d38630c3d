package policies

import (
	"strings"
	"time"
)

// expiryLayouts are tried in order. A bare date expires at the end of
// that day.
var expiryLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parseTimeFlexible(value string) time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}
	}
	for _, layout := range expiryLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC()
		}
	}
	if day, err := time.Parse(time.DateOnly, trimmed); err == nil {
		return day.UTC().Add(24*time.Hour - time.Nanosecond)
	}
	return time.Time{}
}
