package render

import (
	"fmt"
	"strings"
	"time"
)

// Dash is shown for absent values.
const Dash = "—"

// shortDateTime matches the en-IN short date and time style, e.g.
// "05/03/26, 2:07 pm".
const shortDateTime = "02/01/06, 3:04 pm"

// LocalInputLayout is the value format of a datetime-local input.
const LocalInputLayout = "2006-01-02T15:04"

// DateTime formats t in loc using the en-IN short style, or Dash when t is
// nil.
func DateTime(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return Dash
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(shortDateTime)
}

// LocalInput converts a timestamp to a datetime-local value in UTC.
func LocalInput(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(LocalInputLayout)
}

// ParseLocalInput converts a datetime-local value, read as UTC, back into a
// timestamp. Blank input yields nil.
func ParseLocalInput(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	layouts := []string{LocalInputLayout, "2006-01-02T15:04:05", time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			u := t.UTC()
			return &u, nil
		}
	}
	return nil, fmt.Errorf("invalid date and time %q", s)
}
