package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/eventbrite-events/internal/crawl"
	"github.com/pfrederiksen/eventbrite-events/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Seeds       []string      `json:"seeds"`
	Target      int           `json:"target"`
	Stats       crawl.Stats   `json:"stats"`
	DatasetPath string        `json:"dataset_path"`
	Events      []event.Event `json:"events,omitempty"`
}

// Underfilled reports whether fewer events were saved than requested
func (r *OutputResult) Underfilled() bool {
	return r.Stats.Saved < r.Target
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	s := result.Stats

	fmt.Fprintf(w, "Run %s: saved %d/%d events\n", result.RunID, s.Saved, result.Target)
	fmt.Fprintf(w, "Pages: %d processed, %d empty, %d failed, %d skipped\n",
		s.PagesProcessed, s.PagesEmpty, s.PagesFailed, s.PagesSkipped)

	if len(s.Methods) > 0 {
		methods := make([]string, 0, len(s.Methods))
		for m, n := range s.Methods {
			methods = append(methods, fmt.Sprintf("%s=%d", m, n))
		}
		sort.Strings(methods)
		fmt.Fprintf(w, "Methods: %s\n", strings.Join(methods, ", "))
	}
	fmt.Fprintf(w, "Dataset: %s\n", result.DatasetPath)
	fmt.Fprintf(w, "Duration: %s\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))

	if !verbose {
		return nil
	}
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "\nNo events to list.")
		return nil
	}

	fmt.Fprintf(w, "\nEvents (%d):\n", len(result.Events))
	for _, evt := range result.Events {
		name := evt.Name
		if name == "" {
			name = "(untitled)"
		}
		fmt.Fprintf(w, "  %s\n", name)
		if when := describeWhen(&evt); when != "" {
			fmt.Fprintf(w, "       When: %s\n", when)
		}
		if evt.Location != "" {
			fmt.Fprintf(w, "       Where: %s\n", evt.Location)
		} else if evt.IsOnlineEvent {
			fmt.Fprintln(w, "       Where: Online")
		}
		if evt.Price != "" {
			fmt.Fprintf(w, "       Price: %s\n", evt.Price)
		}
		if evt.URL != "" {
			fmt.Fprintf(w, "       URL: %s\n", evt.URL)
		}
	}
	return nil
}

func describeWhen(evt *event.Event) string {
	if evt.StartDate != "" {
		return strings.TrimSpace(evt.StartDate + " " + evt.StartTime)
	}
	return evt.DateText
}
