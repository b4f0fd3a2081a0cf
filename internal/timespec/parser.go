// Package timespec parses the --since/--until values accepted by shop orders.
package timespec

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Parse parses a time specification relative to the current time.
// Supports three formats:
//   - Go duration format: "1h", "30m", "72h" (that long ago)
//   - RFC3339 timestamps: "2025-10-29T13:00:00Z"
//   - Calendar dates: "2025-10-29" (midnight UTC)
func Parse(spec string) (time.Time, error) {
	return ParseAt(spec, time.Now())
}

// ParseAt is Parse with an explicit reference time for relative durations.
func ParseAt(spec string, now time.Time) (time.Time, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return time.Time{}, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t, nil
	}

	if t, err := time.Parse(dateLayout, spec); err == nil {
		return t, nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("invalid time specification: %s (duration must not be negative)", spec)
		}
		return now.Add(-d), nil
	}

	return time.Time{}, fmt.Errorf("invalid time specification: %s (use duration like '72h', a date like '2025-10-29' or RFC3339 like '2025-10-29T13:00:00Z')", spec)
}

// Range is a time window. A zero bound means open on that side.
type Range struct {
	Since time.Time
	Until time.Time
}

// Contains reports whether t falls inside the range (both ends inclusive).
func (r Range) Contains(t time.Time) bool {
	if !r.Since.IsZero() && t.Before(r.Since) {
		return false
	}
	if !r.Until.IsZero() && t.After(r.Until) {
		return false
	}
	return true
}

// ParseRange parses both --since and --until flags into a time range.
// Validates that since < until if both are specified.
func ParseRange(since, until string) (Range, error) {
	return ParseRangeAt(since, until, time.Now())
}

// ParseRangeAt is ParseRange with an explicit reference time.
func ParseRangeAt(since, until string, now time.Time) (Range, error) {
	var r Range
	var err error

	if since != "" {
		r.Since, err = ParseAt(since, now)
		if err != nil {
			return Range{}, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		r.Until, err = ParseAt(until, now)
		if err != nil {
			return Range{}, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if !r.Since.IsZero() && !r.Until.IsZero() && !r.Since.Before(r.Until) {
		return Range{}, fmt.Errorf("--since must be before --until")
	}

	return r, nil
}
