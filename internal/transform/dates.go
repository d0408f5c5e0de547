package transform

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// parseDate accepts YYYY-MM-DD, optionally followed by a time part.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(dateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s[:len(dateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// normalizeDate returns the canonical YYYY-MM-DD form of s.
func normalizeDate(s string) (string, bool) {
	t, ok := parseDate(s)
	if !ok {
		return "", false
	}
	return t.Format(dateLayout), true
}

// calendarFields derives year, quarter label (2023-Q1) and month label
// (2023-01) from a date.
func calendarFields(t time.Time) (int32, string, string) {
	q := (int(t.Month())-1)/3 + 1
	return int32(t.Year()), fmt.Sprintf("%d-Q%d", t.Year(), q), t.Format("2006-01")
}

// newerThan reports whether event is strictly after watermark. An empty
// watermark admits everything.
func newerThan(event, watermark string) bool {
	return watermark == "" || event > watermark
}
