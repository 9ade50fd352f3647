package model

import (
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04"}

// ParseDate accepts a calendar date ("2024-05-01") or a full RFC 3339
// timestamp as sent by HTML date inputs and JavaScript clients.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
