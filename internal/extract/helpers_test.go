package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/eventbrite-events/internal/event"
)

func docFromString(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing HTML: %v", err)
	}
	return doc
}

func docFromFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return docFromString(t, string(data))
}

func byName(events []event.Event) map[string]event.Event {
	m := make(map[string]event.Event, len(events))
	for _, evt := range events {
		m[evt.Name] = evt
	}
	return m
}
