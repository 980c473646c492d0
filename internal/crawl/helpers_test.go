package crawl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/eventbrite-events/internal/event"
)

const seedURL = "https://www.eventbrite.com/d/online/all-events/"

// serverPage renders a listing page carrying an embedded state blob
func serverPage(pageCount int, ids ...int) string {
	entries := make([]string, len(ids))
	for i, id := range ids {
		entries[i] = fmt.Sprintf(`{"id": "%d", "name": "Event %d", "url": "https://www.eventbrite.com/e/event-%d"}`, id, id, id)
	}
	return fmt.Sprintf(`<html><head><script>window.__SERVER_DATA__ = {"search_data": {"events": {"results": [%s], "pagination": {"page_count": %d}}}};</script></head><body></body></html>`,
		strings.Join(entries, ","), pageCount)
}

func pageURL(n int) string {
	if n == 1 {
		return seedURL
	}
	return fmt.Sprintf("%s?page=%d", seedURL, n)
}

type fakeFetcher struct {
	mu          sync.Mutex
	pages       map[string]string
	fetched     []string
	inFlight    int
	maxInFlight int
	delay       time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	html, ok := f.pages[url]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, errors.New("unexpected status code 404")
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

type memWriter struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (w *memWriter) Write(_ context.Context, events []event.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.events = append(w.events, events...)
	return nil
}

func (w *memWriter) Close() error { return nil }

func (w *memWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}
