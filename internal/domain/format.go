package domain

import (
	"fmt"
	"time"
)

// TimestampLayout is the MM/DD/YYYY HH:MM:SS format used in ledger files.
const TimestampLayout = "01/02/2006 15:04:05"

// DayLayout keys one ledger (and one file) per calendar day.
const DayLayout = "20060102"

// OngoingMarker is the duration text of a record that was just opened.
const OngoingMarker = "ONGOING"

// ContinuedMarker tags a record carried across a day boundary.
const ContinuedMarker = "ONGOING (continues from previous day)"

func FormatTimestamp(t time.Time) string { return t.Format(TimestampLayout) }

func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.Local)
}

func DayKey(t time.Time) string { return t.Format(DayLayout) }

// FormatDuration renders an elapsed time at seconds granularity.
func FormatDuration(d time.Duration) string {
	s := int(d.Seconds())
	if s < 0 {
		s = 0
	}
	switch {
	case s < 60:
		return fmt.Sprintf("%d seconds", s)
	case s < 3600:
		return fmt.Sprintf("%d minutes %d seconds", s/60, s%60)
	default:
		return fmt.Sprintf("%d hours %d minutes %d seconds", s/3600, (s%3600)/60, s%60)
	}
}

// OngoingFor is the refreshed duration text of a still-open outage.
func OngoingFor(d time.Duration) string {
	return fmt.Sprintf("ONGOING (%s)", FormatDuration(d))
}

// ContinuedFor is the refreshed duration text of a still-open outage that was
// carried over from a previous day. The marker stays visible so the two kinds
// of open records remain distinguishable in the daily file.
func ContinuedFor(d time.Duration) string {
	return fmt.Sprintf("ONGOING (continues from previous day, down %s)", FormatDuration(d))
}
