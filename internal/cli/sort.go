package cli

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/eventbrite-events/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone   SortOrder = ""
	SortByDate SortOrder = "date"
	SortByName SortOrder = "name"
)

// ParseSortOrder validates a --sort value
func ParseSortOrder(s string) (SortOrder, bool) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case SortNone, SortByDate, SortByName:
		return order, true
	default:
		return SortNone, false
	}
}

// sortEvents sorts a slice of events based on the specified sort order
func sortEvents(events []event.Event, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByDate(&events[i], &events[j])
		})
	case SortByName:
		sort.SliceStable(events, func(i, j int) bool {
			ni, nj := strings.ToLower(events[i].Name), strings.ToLower(events[j].Name)
			if ni != nj {
				return ni < nj
			}
			// If names are equal, sort by date
			return compareByDate(&events[i], &events[j])
		})
	}
}

// compareByDate compares two events by their start
// Returns true if event i should come before event j
func compareByDate(i, j *event.Event) bool {
	startI, _ := i.Start()
	startJ, _ := j.Start()

	// If both dates are valid, compare them
	if !startI.IsZero() && !startJ.IsZero() {
		if !startI.Equal(startJ) {
			return startI.Before(startJ)
		}
		return strings.ToLower(i.Name) < strings.ToLower(j.Name)
	}

	// If only one date is valid, put the valid one first
	if !startI.IsZero() {
		return true
	}
	if !startJ.IsZero() {
		return false
	}

	return strings.ToLower(i.Name) < strings.ToLower(j.Name)
}
