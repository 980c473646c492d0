package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"

	"github.com/pfrederiksen/eventbrite-events/internal/logger"
)

const (
	UserAgent  = "eventbrite-events/1.0 (github.com/pfrederiksen/eventbrite-events)"
	Timeout    = 60 * time.Second
	MaxRetries = 3
)

// StatusError is returned when the server answers with a non-200 status
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d for %s", e.Code, e.URL)
}

// Retryable reports whether the status is worth another attempt
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Options configures a Scraper. Zero values select the package defaults.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	ProxyURL   string
	MaxRetries int

	// NewBackOff overrides the retry schedule
	NewBackOff func() backoff.BackOff
}

// Scraper fetches listing pages
type Scraper struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	newBackOff func() backoff.BackOff
}

// New creates a new Scraper instance
func New(opts Options) (*Scraper, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 15 * time.Second
			return b
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.ProxyURL != "" {
		proxy, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &Scraper{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		userAgent:  opts.UserAgent,
		maxRetries: opts.MaxRetries,
		newBackOff: opts.NewBackOff,
	}, nil
}

// Fetch downloads pageURL and parses it, retrying transient failures
func (s *Scraper) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document
	attempt := 0

	operation := func() error {
		attempt++
		d, err := s.fetchOnce(ctx, pageURL)
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !statusErr.Retryable() {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		doc = d
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Fetch failed, retrying", logger.Fields{
			"url":     pageURL,
			"attempt": attempt,
			"wait":    wait.String(),
			"error":   err.Error(),
		})
	}

	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), uint64(s.maxRetries)), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, fmt.Errorf("fetching %s after %d attempt(s): %w", pageURL, attempt, err)
	}
	return doc, nil
}

func (s *Scraper) fetchOnce(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: pageURL, Code: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	doc.Url = resp.Request.URL
	return doc, nil
}
