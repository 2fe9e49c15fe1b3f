package quake

import (
	"fmt"
	"strings"
	"time"
)

// Manila is Philippine Standard Time. The bulletins carry local time with no
// zone and the country observes no daylight saving.
var Manila = time.FixedZone("PST", 8*60*60)

var dateLayouts = []string{
	"2 January 2006 3:04 PM",
	"2 Jan 2006 3:04 PM",
	"2 January 2006 3:04:05 PM",
	"2 Jan 2006 3:04:05 PM",
}

// ParseDate parses a bulletin timestamp such as "27 November 2025 - 10:04 AM"
// in Manila time
func ParseDate(s string) (time.Time, error) {
	cleaned := strings.Join(strings.Fields(strings.Replace(s, " - ", " ", 1)), " ")

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, cleaned, Manila); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised bulletin date %q", s)
}

// RelativeTime renders t relative to now ("Just now", "5m ago", "3h ago",
// "2d ago"), falling back to an absolute date after a week
func RelativeTime(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff/(24*time.Hour)))
	default:
		return t.In(Manila).Format("Jan 2, 2006 03:04 PM")
	}
}
