package domain

import (
	"strconv"
	"time"
)

// DateLayout renders a timestamp the way en-US toLocaleDateString and
// toLocaleTimeString do when joined by a space, e.g. "11/14/2023 10:13:20 PM".
const DateLayout = "1/2/2006 3:04:05 PM"

// Summarize builds the popup text for a feature. The date is shown in loc;
// a nil loc means UTC.
func Summarize(f Feature, loc *time.Location) Summary {
	return Summary{
		Place:     f.Place,
		Date:      FormatDate(f.Time, loc),
		Magnitude: formatFixed2(f.Magnitude),
		Depth:     formatFixed2(f.Depth) + " km",
	}
}

// FormatDate formats t in loc using DateLayout.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// formatFixed2 rounds to two decimals using the exact binary value, so 4.567
// gives "4.57" and 2.675 gives "2.67".
func formatFixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
