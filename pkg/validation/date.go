package validation

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date form used on the wire and in forms.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"02/01/2006",
	"02-01-2006",
}

// ParseCalendarDate accepts the date and timestamp shapes the backend and
// older clients emit and returns the calendar date as written, at midnight UTC.
// A timestamp keeps the day printed in its own offset, so
// "1990-05-14T18:30:00.000Z" yields 1990-05-14.
func ParseCalendarDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return CalendarDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// CalendarDate truncates t to its calendar day in t's own location.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
