package database

import (
	"fmt"
	"time"
)

// TimeFormat is the canonical storage format for timestamps. Fixed width so
// lexicographic ordering of the stored text matches chronological ordering,
// which the append-only tables rely on for their ORDER BY clauses.
const TimeFormat = "2006-01-02 15:04:05.000"

// FormatTime renders a timestamp for storage (always UTC)
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime parses a stored timestamp
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}
