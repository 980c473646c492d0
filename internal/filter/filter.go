// Package filter narrows the events listed in a run summary.
//
// Filters never affect what a crawl saves: the dataset always holds every
// accepted event. They only select which saved events are printed.
//
// Supported criteria:
//   - Date range (from/to dates, inclusive)
//   - Names (substring matching, case-insensitive)
//   - Locations (substring matching, case-insensitive; "online" matches online events)
//   - Weekends only (Saturday/Sunday)
//   - Upcoming only (start in the future)
//   - Free only / online only
//
// Example usage:
//
//	f := filter.NewFilter()
//	f.WeekendsOnly = true
//	f.Names = []string{"jazz"}
//	listed := f.Apply(events)
package filter

import (
	"strings"
	"time"

	"github.com/pfrederiksen/eventbrite-events/internal/event"
)

// Filter represents event filtering criteria
type Filter struct {
	// Date range filtering
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Name filtering (case-insensitive substring match)
	Names []string `json:"names,omitempty"`

	// Location filtering (case-insensitive substring match)
	Locations []string `json:"locations,omitempty"`

	WeekendsOnly bool `json:"weekends_only,omitempty"`
	UpcomingOnly bool `json:"upcoming_only,omitempty"`
	FreeOnly     bool `json:"free_only,omitempty"`
	OnlineOnly   bool `json:"online_only,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all events until criteria are added.
func NewFilter() *Filter {
	return &Filter{}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Names) == 0 &&
		len(f.Locations) == 0 &&
		!f.WeekendsOnly &&
		!f.UpcomingOnly &&
		!f.FreeOnly &&
		!f.OnlineOnly
}

// Matches checks if an event matches all active filter criteria.
// Date criteria are ignored for events whose start cannot be parsed, so
// markup-only records with a free-text date are kept.
func (f *Filter) Matches(evt *event.Event) bool {
	if f.IsEmpty() {
		return true
	}

	if f.FreeOnly && !evt.IsFree {
		return false
	}
	if f.OnlineOnly && !evt.IsOnlineEvent {
		return false
	}
	if f.UpcomingOnly && !evt.IsUpcoming() {
		return false
	}

	if start, _ := evt.Start(); !start.IsZero() {
		// compare calendar days in the event's own zone
		day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		if f.DateFrom != nil && day.Before(truncateDay(*f.DateFrom)) {
			return false
		}
		if f.DateTo != nil && day.After(*f.DateTo) {
			return false
		}
		if f.WeekendsOnly {
			weekday := start.Weekday()
			if weekday != time.Saturday && weekday != time.Sunday {
				return false
			}
		}
	}

	if len(f.Names) > 0 && !containsAny(evt.Name, f.Names) {
		return false
	}

	if len(f.Locations) > 0 {
		location := evt.Location
		if evt.IsOnlineEvent {
			location += " online"
		}
		if !containsAny(location, f.Locations) {
			return false
		}
	}

	return true
}

// Apply returns the events matching the filter. If the filter is empty the
// original slice is returned unchanged.
func (f *Filter) Apply(events []event.Event) []event.Event {
	if f.IsEmpty() {
		return events
	}

	filtered := make([]event.Event, 0, len(events))
	for i := range events {
		if f.Matches(&events[i]) {
			filtered = append(filtered, events[i])
		}
	}
	return filtered
}

func containsAny(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if n = strings.TrimSpace(n); n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
