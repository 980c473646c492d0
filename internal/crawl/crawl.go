package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/eventbrite-events/internal/event"
	"github.com/pfrederiksen/eventbrite-events/internal/ledger"
	"github.com/pfrederiksen/eventbrite-events/internal/logger"
	"github.com/pfrederiksen/eventbrite-events/internal/metrics"
	"github.com/pfrederiksen/eventbrite-events/internal/paginate"
	"github.com/pfrederiksen/eventbrite-events/internal/storage"
)

// Fetcher downloads and parses one page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Options configures a Crawler
type Options struct {
	Concurrency int
	// Metrics is optional
	Metrics *metrics.Metrics
	// Logger defaults to logger.Default()
	Logger *logger.Logger
}

// Stats summarizes a crawl
type Stats struct {
	PagesProcessed int                  `json:"pages_processed"`
	PagesEmpty     int                  `json:"pages_empty"`
	PagesFailed    int                  `json:"pages_failed"`
	PagesSkipped   int                  `json:"pages_skipped"`
	Saved          int                  `json:"saved"`
	Methods        map[event.Method]int `json:"methods,omitempty"`
}

// Crawler fetches pages concurrently and feeds them through a Processor
type Crawler struct {
	fetcher     Fetcher
	processor   *Processor
	ledger      *ledger.Ledger
	writer      storage.Writer
	metrics     *metrics.Metrics
	log         *logger.Logger
	concurrency int
}

// New returns a Crawler. The ledger must be the one the processor accepts into.
func New(f Fetcher, p *Processor, l *ledger.Ledger, w storage.Writer, opts Options) *Crawler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	return &Crawler{
		fetcher:     f,
		processor:   p,
		ledger:      l,
		writer:      w,
		metrics:     opts.Metrics,
		log:         opts.Logger,
		concurrency: opts.Concurrency,
	}
}

type pageResult struct {
	page    Page
	outcome Outcome
	failed  bool
	err     error
}

// Run crawls from the seed URLs until the target is met, the queue is empty
// or ctx is canceled. Fetch failures are logged and skipped; a persistence
// failure stops the crawl and is returned.
func (c *Crawler) Run(ctx context.Context, seeds []string) (Stats, error) {
	stats := Stats{Methods: make(map[event.Method]int)}

	pending := make([]Page, 0, len(seeds))
	for _, u := range seeds {
		pending = append(pending, Page{URL: u, Number: paginate.PageOf(u)})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	// inFlight never exceeds concurrency, so workers never block on send
	results := make(chan pageResult, c.concurrency)
	inFlight := 0

	for len(pending) > 0 || inFlight > 0 {
		for len(pending) > 0 && inFlight < c.concurrency && gctx.Err() == nil {
			page := pending[0]
			pending = pending[1:]

			if c.ledger.Done() {
				stats.PagesSkipped++
				c.observePage(metrics.OutcomeSkipped)
				continue
			}

			inFlight++
			g.Go(func() error {
				res := c.handle(gctx, page)
				results <- res
				return res.err
			})
		}

		if inFlight == 0 {
			break
		}

		res := <-results
		inFlight--
		c.record(&stats, res)

		if res.err == nil && res.outcome.Next != nil && gctx.Err() == nil {
			pending = append(pending, *res.outcome.Next)
		}
	}

	err := g.Wait()
	stats.Saved = c.ledger.Saved()

	if err != nil {
		return stats, err
	}
	if ctx.Err() != nil {
		return stats, ctx.Err()
	}
	return stats, nil
}

func (c *Crawler) handle(ctx context.Context, page Page) pageResult {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.PageDuration.Observe(time.Since(start).Seconds())
		}
	}()

	fields := logger.Fields{"url": page.URL, "page": page.Number}

	doc, err := c.fetcher.Fetch(ctx, page.URL)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Error("Failed to fetch page", fields, err)
			if c.metrics != nil {
				c.metrics.FetchFailures.Inc()
			}
		}
		return pageResult{page: page, failed: true}
	}

	out := c.processor.Process(doc, page)
	res := pageResult{page: page, outcome: out}

	switch {
	case out.Skipped:
		c.log.Debug("Target reached, skipping page", fields)
		return res
	case out.Empty():
		c.log.Warn("No events found on page", fields)
		return res
	}

	if len(out.Accepted) > 0 {
		if err := c.writer.Write(ctx, out.Accepted); err != nil {
			res.err = fmt.Errorf("persisting events from page %d: %w", page.Number, err)
			return res
		}
	}

	fields["method"] = string(out.Method)
	fields["extracted"] = out.Extracted
	fields["accepted"] = len(out.Accepted)
	fields["saved"] = c.ledger.Saved()
	fields["has_next"] = out.Next != nil
	c.log.Info("Processed page", fields)

	return res
}

// record folds a page result into stats and metrics. Only Run calls it.
func (c *Crawler) record(stats *Stats, res pageResult) {
	switch {
	case res.failed, res.err != nil:
		stats.PagesFailed++
		c.observePage(metrics.OutcomeFailed)
	case res.outcome.Skipped:
		stats.PagesSkipped++
		c.observePage(metrics.OutcomeSkipped)
	case res.outcome.Empty():
		stats.PagesProcessed++
		stats.PagesEmpty++
		c.observePage(metrics.OutcomeEmpty)
	default:
		stats.PagesProcessed++
		stats.Methods[res.outcome.Method]++
		c.observePage(metrics.OutcomeExtracted)
		if c.metrics != nil {
			c.metrics.EventsExtracted.WithLabelValues(string(res.outcome.Method)).Add(float64(res.outcome.Extracted))
			c.metrics.EventsSaved.Add(float64(len(res.outcome.Accepted)))
		}
	}
}

func (c *Crawler) observePage(outcome string) {
	if c.metrics != nil {
		c.metrics.PagesTotal.WithLabelValues(outcome).Inc()
	}
}
