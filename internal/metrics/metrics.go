// Package metrics exposes crawl counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eventbrite_events"

// Page outcomes
const (
	OutcomeExtracted = "extracted"
	OutcomeEmpty     = "empty"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Metrics holds the crawl collectors
type Metrics struct {
	PagesTotal      *prometheus.CounterVec
	EventsExtracted *prometheus.CounterVec
	EventsSaved     prometheus.Counter
	FetchFailures   prometheus.Counter
	PageDuration    prometheus.Histogram
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Listing pages handled, by outcome",
		}, []string{"outcome"}),
		EventsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_extracted_total",
			Help:      "Events recovered from pages, by extraction method",
		}, []string{"method"}),
		EventsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_saved_total",
			Help:      "Events accepted by the ledger and persisted",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Pages whose fetch failed after all retries",
		}),
		PageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_duration_seconds",
			Help:      "Time spent fetching and processing one page",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}

	reg.MustRegister(m.PagesTotal, m.EventsExtracted, m.EventsSaved, m.FetchFailures, m.PageDuration)
	return m
}

// Server serves /metrics and /healthz
type Server struct {
	server *http.Server
}

// NewServer returns a Server exposing the metrics gathered by g
func NewServer(addr string, g prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
	}
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Serve blocks until the server stops. A normal shutdown returns nil.
func (s *Server) Serve() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error { return s.server.Shutdown(ctx) }
