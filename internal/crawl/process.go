package crawl

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/eventbrite-events/internal/event"
	"github.com/pfrederiksen/eventbrite-events/internal/extract"
	"github.com/pfrederiksen/eventbrite-events/internal/ledger"
	"github.com/pfrederiksen/eventbrite-events/internal/paginate"
)

// Page is one listing page to fetch
type Page struct {
	URL    string
	Number int
}

// Extractor turns a document into events
type Extractor interface {
	Extract(doc *goquery.Document) extract.Result
}

// Outcome is the decision for one page
type Outcome struct {
	Accepted  []event.Event
	Method    event.Method
	Extracted int
	// Next is nil when no further page should be fetched from this one
	Next *Page
	// Skipped is set when the target was already met before extraction
	Skipped bool
}

// Empty reports whether extraction found nothing on the page
func (o Outcome) Empty() bool {
	return !o.Skipped && o.Extracted == 0
}

// Processor runs extraction, ledger acceptance and pagination for one page
type Processor struct {
	extractor Extractor
	ledger    *ledger.Ledger
	maxPages  int
}

// NewProcessor returns a Processor. maxPages below 1 is treated as 1.
func NewProcessor(ex Extractor, l *ledger.Ledger, maxPages int) *Processor {
	if maxPages < 1 {
		maxPages = 1
	}
	return &Processor{extractor: ex, ledger: l, maxPages: maxPages}
}

// Process handles one fetched page. It never fails: a page without events
// yields an empty Outcome with no next page.
func (p *Processor) Process(doc *goquery.Document, page Page) Outcome {
	if p.ledger.Done() {
		return Outcome{Method: event.MethodUnknown, Skipped: true}
	}

	result := p.extractor.Extract(doc)
	if result.Empty() {
		return Outcome{Method: result.Method}
	}

	out := Outcome{
		Accepted:  p.ledger.Accept(result.Events),
		Method:    result.Method,
		Extracted: len(result.Events),
	}

	if !p.ledger.Done() {
		if next, ok := paginate.Next(page.URL, page.Number, result.TotalPages, p.maxPages); ok {
			out.Next = &Page{URL: next, Number: page.Number + 1}
		}
	}
	return out
}
