// Package calendar renders saved events as an iCalendar feed.
package calendar

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/eventbrite-events/internal/event"
)

const (
	prodID          = "-//Eventbrite Events//eventbrite-events//EN"
	uidDomain       = "eventbrite-events"
	defaultDuration = 2 * time.Hour
	maxLineOctets   = 75
)

// GenerateICS renders one VCALENDAR holding a VEVENT per event with a
// parseable start date. Events without one are skipped.
func GenerateICS(events []event.Event, now time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	writeLine(&ics, "PRODID:"+prodID)
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")

	for i := range events {
		writeEvent(&ics, &events[i], now)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeEvent(ics *strings.Builder, evt *event.Event, now time.Time) {
	start, timed := evt.Start()
	if start.IsZero() {
		return
	}

	ics.WriteString("BEGIN:VEVENT\r\n")
	writeLine(ics, "UID:"+eventUID(evt))
	writeLine(ics, "DTSTAMP:"+formatICSTime(now))

	if timed {
		end, endTimed := evt.End()
		if !endTimed || !end.After(start) {
			end = start.Add(defaultDuration)
		}
		writeLine(ics, "DTSTART:"+formatICSTime(start))
		writeLine(ics, "DTEND:"+formatICSTime(end))
	} else {
		// all-day; DTEND is exclusive
		writeLine(ics, "DTSTART;VALUE=DATE:"+start.Format("20060102"))
		writeLine(ics, "DTEND;VALUE=DATE:"+start.AddDate(0, 0, 1).Format("20060102"))
	}

	writeLine(ics, "SUMMARY:"+escapeICS(evt.Name))

	var description []string
	if evt.Summary != "" {
		description = append(description, evt.Summary)
	}
	if evt.Price != "" {
		description = append(description, "Price: "+evt.Price)
	}
	if evt.OrganizerName != "" {
		description = append(description, "Organizer: "+evt.OrganizerName)
	}
	if len(description) > 0 {
		writeLine(ics, "DESCRIPTION:"+escapeICS(strings.Join(description, "\n")))
	}

	location := evt.Location
	if location == "" && evt.IsOnlineEvent {
		location = "Online"
	}
	if location != "" {
		writeLine(ics, "LOCATION:"+escapeICS(location))
	}
	if evt.Category != "" {
		writeLine(ics, "CATEGORIES:"+escapeICS(evt.Category))
	}
	if evt.URL != "" {
		writeLine(ics, "URL:"+evt.URL)
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

// eventUID is stable across runs: the Eventbrite id when known, otherwise a
// name-based UUID of the identity key.
func eventUID(evt *event.Event) string {
	if evt.ID != "" {
		return fmt.Sprintf("%s@%s", evt.ID, uidDomain)
	}
	return fmt.Sprintf("%s@%s", uuid.NewSHA1(uuid.NameSpaceURL, []byte(evt.IdentityKey())), uidDomain)
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// RFC 5545 text escaping
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// writeLine writes a content line folded at 75 octets without splitting a
// UTF-8 sequence.
func writeLine(ics *strings.Builder, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8Start(line[cut]) {
			cut--
		}
		ics.WriteString(line[:cut])
		ics.WriteString("\r\n ")
		line = line[cut:]
		// continuation lines lose one octet to the leading space
		limit = maxLineOctets - 1
	}
	ics.WriteString(line)
	ics.WriteString("\r\n")
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}

// Writer collects events and writes them as one .ics file on Close. It is
// safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	path   string
	events []event.Event
	closed bool
	now    func() time.Time
}

// NewWriter returns a Writer for path
func NewWriter(path string) *Writer {
	return &Writer{path: path, now: time.Now}
}

// Write buffers events until Close
func (w *Writer) Write(_ context.Context, events []event.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("calendar writer for %s is closed", w.path)
	}
	w.events = append(w.events, events...)
	return nil
}

// Close renders the buffered events to the file
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	data := GenerateICS(w.events, w.now().UTC())
	if err := os.WriteFile(w.path, []byte(data), 0644); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	return nil
}

// Path returns the output file location
func (w *Writer) Path() string {
	return w.path
}
