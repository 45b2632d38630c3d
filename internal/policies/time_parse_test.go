package policies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeFlexible(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{
			name:     "RFC3339",
			input:    "2026-06-15T10:30:00Z",
			expected: time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:     "RFC3339 with offset",
			input:    "2026-06-15T12:30:00+02:00",
			expected: time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:     "datetime without timezone",
			input:    "2026-06-15 10:30:00",
			expected: time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:     "date only means end of day",
			input:    "2026-06-15",
			expected: time.Date(2026, 6, 15, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:     "empty string",
			input:    "",
			expected: time.Time{},
		},
		{
			name:     "unparseable returns zero",
			input:    "next tuesday",
			expected: time.Time{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseTimeFlexible(tt.input))
		})
	}
}
