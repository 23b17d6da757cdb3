package timestamp

import (
	"fmt"
	"strings"
	"time"
)

// layouts are the shapes the backend emits. Naive timestamps (no offset) are
// produced by datetime.utcnow() on the server side and are interpreted as UTC.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Parse converts a backend timestamp string into a UTC time.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("timestamp: empty value")
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp: unrecognized format %q", s)
}

// Format renders t the way the backend accepts it in request bodies.
func Format(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05")
}
