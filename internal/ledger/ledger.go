// Package ledger tracks which events a crawl has already saved and how many,
// so that concurrent page workers never overshoot the target or save a
// duplicate.
package ledger

import (
	"sync"

	"github.com/pfrederiksen/eventbrite-events/internal/event"
)

// Ledger is the process-wide dedup and quota state. It is safe for
// concurrent use.
type Ledger struct {
	mu     sync.Mutex
	target int
	saved  int
	seen   map[string]struct{}
}

// New returns a ledger that stops accepting once target events are saved.
// A target below 1 is treated as 1.
func New(target int) *Ledger {
	if target < 1 {
		target = 1
	}
	return &Ledger{
		target: target,
		seen:   make(map[string]struct{}),
	}
}

// Accept filters events down to the ones that should be saved, in order.
// Events without an identity key are always accepted. Anything left in the
// batch after the target is reached is discarded.
func (l *Ledger) Accept(events []event.Event) []event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	var accepted []event.Event
	for i := range events {
		if l.saved >= l.target {
			break
		}

		key := events[i].IdentityKey()
		if key != "" {
			if _, dup := l.seen[key]; dup {
				continue
			}
			l.seen[key] = struct{}{}
		}

		accepted = append(accepted, events[i])
		l.saved++
	}
	return accepted
}

// Saved returns how many events have been accepted so far
func (l *Ledger) Saved() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saved
}

// Done reports whether the target has been reached
func (l *Ledger) Done() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saved >= l.target
}

// Remaining returns how many more events may be accepted
func (l *Ledger) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.target - l.saved
}

// Seen reports whether an identity key has already been accepted
func (l *Ledger) Seen(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[key]
	return ok
}

// Target returns the configured quota
func (l *Ledger) Target() int {
	return l.target
}
