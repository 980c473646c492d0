package extract

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/eventbrite-events/internal/event"
	"github.com/pfrederiksen/eventbrite-events/internal/logger"
)

// Batch is what a strategy recovered from one page
type Batch struct {
	Events []event.Event
	// TotalPages is the page count declared by the source, 0 when unknown
	TotalPages int
}

// Strategy is one extraction attempt over a parsed listing page. Extract
// reports false when it found nothing usable.
type Strategy interface {
	Method() event.Method
	Extract(doc *goquery.Document) (Batch, bool)
}

// Result is the outcome of running the strategy chain on one page
type Result struct {
	Events     []event.Event
	Method     event.Method
	TotalPages int
}

// Empty reports whether no strategy produced events
func (r Result) Empty() bool {
	return len(r.Events) == 0
}

// Coordinator runs strategies in priority order and keeps the first
// non-empty result
type Coordinator struct {
	strategies []Strategy
}

// NewCoordinator returns the standard chain: embedded state, structured data,
// then markup with links qualified against origin.
func NewCoordinator(origin string) *Coordinator {
	return NewCoordinatorWith(
		EmbeddedState{},
		StructuredData{},
		Markup{Origin: origin},
	)
}

// NewCoordinatorWith builds a coordinator over a custom strategy chain
func NewCoordinatorWith(strategies ...Strategy) *Coordinator {
	return &Coordinator{strategies: strategies}
}

// Extract runs the chain. Every returned event is stamped with the method of
// the strategy that produced it. An empty Result has MethodUnknown.
func (c *Coordinator) Extract(doc *goquery.Document) Result {
	for _, s := range c.strategies {
		batch, ok := s.Extract(doc)
		if !ok || len(batch.Events) == 0 {
			logger.Debug("Strategy found no events", logger.Fields{"strategy": string(s.Method())})
			continue
		}

		event.Stamp(batch.Events, s.Method())
		return Result{
			Events:     batch.Events,
			Method:     s.Method(),
			TotalPages: batch.TotalPages,
		}
	}

	return Result{Method: event.MethodUnknown}
}
