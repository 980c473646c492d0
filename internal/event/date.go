package event

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

var clockLayouts = []string{
	"15:04:05Z07:00",
	"15:04:05.000Z07:00",
	"15:04:05",
	"15:04",
}

// ParseDate parses a calendar date such as "2026-03-15".
// Returns time.Time{} (zero value) if parsing fails.
func ParseDate(date string) time.Time {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseDateTime combines a date and an optional clock time into one instant.
// A clock time carrying its own offset wins over tz; otherwise tz is loaded as
// an IANA zone name, falling back to UTC. Returns the zero time when the date
// cannot be parsed. The second result reports whether a clock time was used.
func ParseDateTime(date, clock, tz string) (time.Time, bool) {
	d := ParseDate(date)
	if d.IsZero() {
		return time.Time{}, false
	}

	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	clock = strings.TrimSpace(clock)
	if clock == "" {
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc), false
	}

	for _, layout := range clockLayouts {
		c, err := time.Parse(layout, clock)
		if err != nil {
			continue
		}
		if strings.Contains(layout, "Z07:00") {
			loc = c.Location()
		}
		return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, loc), true
	}

	// Unknown clock format: keep the day
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc), false
}

// Start returns the parsed start instant of the event
func (e *Event) Start() (time.Time, bool) {
	return ParseDateTime(e.StartDate, e.StartTime, e.Timezone)
}

// End returns the parsed end instant of the event
func (e *Event) End() (time.Time, bool) {
	return ParseDateTime(e.EndDate, e.EndTime, e.Timezone)
}

// IsUpcoming checks if an event starts in the future.
// Returns true if the date cannot be parsed (safer default).
func (e *Event) IsUpcoming() bool {
	start, _ := e.Start()
	if start.IsZero() {
		return true
	}
	return start.After(time.Now())
}
