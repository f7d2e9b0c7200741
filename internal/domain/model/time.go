package model

import (
	"strings"
	"time"
)

// Upstream timestamps come as "2006-01-02 15:04:05.999999" or bare dates in
// server local time. RFC3339 is accepted for hand-written fixtures.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses an upstream timestamp in local time. Missing or malformed
// values report ok=false.
func ParseTime(s string) (time.Time, bool) {
	return ParseTimeIn(s, time.Local)
}

// ParseTimeIn is ParseTime with an explicit location for zone-less values.
func ParseTimeIn(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), true
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
