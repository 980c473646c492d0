package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.PagesTotal.WithLabelValues(OutcomeExtracted).Inc()
	m.PagesTotal.WithLabelValues(OutcomeExtracted).Inc()
	m.PagesTotal.WithLabelValues(OutcomeEmpty).Inc()
	m.EventsExtracted.WithLabelValues("embedded-state").Add(12)
	m.EventsSaved.Add(5)
	m.FetchFailures.Inc()
	m.PageDuration.Observe(0.4)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"extracted pages", m.PagesTotal.WithLabelValues(OutcomeExtracted), 2},
		{"empty pages", m.PagesTotal.WithLabelValues(OutcomeEmpty), 1},
		{"events by method", m.EventsExtracted.WithLabelValues("embedded-state"), 12},
		{"saved", m.EventsSaved, 5},
		{"fetch failures", m.FetchFailures, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}

	if got := testutil.CollectAndCount(m.PageDuration); got != 1 {
		t.Errorf("histogram series = %d, want 1", got)
	}
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if recover() == nil {
			t.Error("registering twice on one registry should panic")
		}
	}()
	New(reg)
}

func TestServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.EventsSaved.Add(3)

	srv := httptest.NewServer(NewServer(":0", reg).Handler())
	defer srv.Close()

	tests := []struct {
		path     string
		contains string
	}{
		{"/metrics", "eventbrite_events_events_saved_total 3"},
		{"/healthz", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d", resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("body missing %q:\n%s", tt.contains, body)
			}
		})
	}
}
