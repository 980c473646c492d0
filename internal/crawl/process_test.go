package crawl

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/eventbrite-events/internal/event"
	"github.com/pfrederiksen/eventbrite-events/internal/extract"
	"github.com/pfrederiksen/eventbrite-events/internal/ledger"
)

type stubExtractor struct {
	result extract.Result
}

func (s stubExtractor) Extract(*goquery.Document) extract.Result { return s.result }

func emptyDoc(t *testing.T) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><p>No events</p></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func events(ids ...string) []event.Event {
	out := make([]event.Event, len(ids))
	for i, id := range ids {
		out[i] = event.Event{ID: id, Name: "Event " + id}
	}
	return out
}

func TestProcessor_Process(t *testing.T) {
	tests := []struct {
		name         string
		target       int
		maxPages     int
		page         Page
		result       extract.Result
		wantAccepted int
		wantNext     string
	}{
		{
			name:         "recommends next page",
			target:       20,
			maxPages:     5,
			page:         Page{URL: seedURL, Number: 1},
			result:       extract.Result{Events: events("1", "2"), Method: event.MethodEmbeddedState, TotalPages: 3},
			wantAccepted: 2,
			wantNext:     seedURL + "?page=2",
		},
		{
			name:         "last declared page",
			target:       20,
			maxPages:     5,
			page:         Page{URL: seedURL + "?page=3", Number: 3},
			result:       extract.Result{Events: events("1"), Method: event.MethodEmbeddedState, TotalPages: 3},
			wantAccepted: 1,
		},
		{
			name:         "unknown total uses max pages",
			target:       20,
			maxPages:     2,
			page:         Page{URL: seedURL, Number: 1},
			result:       extract.Result{Events: events("1"), Method: event.MethodMarkup},
			wantAccepted: 1,
			wantNext:     seedURL + "?page=2",
		},
		{
			name:         "target reached stops pagination",
			target:       2,
			maxPages:     5,
			page:         Page{URL: seedURL, Number: 1},
			result:       extract.Result{Events: events("1", "2", "3"), Method: event.MethodStructuredData, TotalPages: 5},
			wantAccepted: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProcessor(stubExtractor{result: tt.result}, ledger.New(tt.target), tt.maxPages)
			out := p.Process(emptyDoc(t), tt.page)

			if len(out.Accepted) != tt.wantAccepted {
				t.Errorf("accepted %d, want %d", len(out.Accepted), tt.wantAccepted)
			}
			if out.Extracted != len(tt.result.Events) {
				t.Errorf("Extracted = %d, want %d", out.Extracted, len(tt.result.Events))
			}
			if out.Method != tt.result.Method {
				t.Errorf("Method = %q, want %q", out.Method, tt.result.Method)
			}

			gotNext := ""
			if out.Next != nil {
				gotNext = out.Next.URL
				if out.Next.Number != tt.page.Number+1 {
					t.Errorf("Next.Number = %d, want %d", out.Next.Number, tt.page.Number+1)
				}
			}
			if gotNext != tt.wantNext {
				t.Errorf("Next = %q, want %q", gotNext, tt.wantNext)
			}
		})
	}
}

func TestProcessor_EmptyPageEndsBranch(t *testing.T) {
	p := NewProcessor(extract.NewCoordinator(extract.DefaultOrigin), ledger.New(20), 5)

	out := p.Process(emptyDoc(t), Page{URL: seedURL, Number: 1})

	if !out.Empty() {
		t.Errorf("Empty() = false, outcome %+v", out)
	}
	if len(out.Accepted) != 0 {
		t.Errorf("accepted %d events from an empty page", len(out.Accepted))
	}
	if out.Next != nil {
		t.Errorf("Next = %+v, want none even though page 1 < max pages", out.Next)
	}
	if out.Method != event.MethodUnknown {
		t.Errorf("Method = %q, want %q", out.Method, event.MethodUnknown)
	}
}

func TestProcessor_SkipsWhenTargetMet(t *testing.T) {
	l := ledger.New(1)
	l.Accept(events("already"))

	calls := 0
	p := NewProcessor(countingExtractor{calls: &calls}, l, 5)
	out := p.Process(emptyDoc(t), Page{URL: seedURL, Number: 1})

	if !out.Skipped || out.Empty() {
		t.Errorf("outcome = %+v, want skipped", out)
	}
	if calls != 0 {
		t.Error("extraction should not run once the target is met")
	}
}

func TestProcessor_DedupsAcrossPages(t *testing.T) {
	l := ledger.New(20)
	p := NewProcessor(stubExtractor{result: extract.Result{
		Events: events("1", "2"), Method: event.MethodEmbeddedState, TotalPages: 5,
	}}, l, 5)

	first := p.Process(emptyDoc(t), Page{URL: seedURL, Number: 1})
	second := p.Process(emptyDoc(t), Page{URL: seedURL + "?page=2", Number: 2})

	if len(first.Accepted) != 2 || len(second.Accepted) != 0 {
		t.Errorf("accepted %d then %d, want 2 then 0", len(first.Accepted), len(second.Accepted))
	}
	if second.Empty() {
		t.Error("a page of duplicates is not an empty page")
	}
	if second.Next == nil {
		t.Error("duplicates alone should not stop pagination")
	}
}

func TestNewProcessor_ClampsMaxPages(t *testing.T) {
	p := NewProcessor(stubExtractor{}, ledger.New(1), 0)
	if p.maxPages != 1 {
		t.Errorf("maxPages = %d, want 1", p.maxPages)
	}
}

type countingExtractor struct {
	calls *int
}

func (c countingExtractor) Extract(*goquery.Document) extract.Result {
	*c.calls++
	return extract.Result{Method: event.MethodUnknown}
}
