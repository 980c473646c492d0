package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/eventbrite-events/internal/crawl"
	"github.com/pfrederiksen/eventbrite-events/internal/event"
)

func sampleResult() *OutputResult {
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	return &OutputResult{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Seeds:      []string{"https://www.eventbrite.com/d/online/all-events/"},
		Target:     20,
		Stats: crawl.Stats{
			PagesProcessed: 3,
			PagesEmpty:     1,
			PagesFailed:    1,
			Saved:          4,
			Methods:        map[event.Method]int{event.MethodStructuredData: 1, event.MethodEmbeddedState: 1},
		},
		DatasetPath: "/tmp/dataset_run-1.jsonl",
		Events: []event.Event{
			{Name: "Jazz Night", StartDate: "2026-11-01", StartTime: "19:00", Price: "$25.00", URL: "https://www.eventbrite.com/e/1"},
			{Name: "Webinar", IsOnlineEvent: true, Price: "Free"},
			{Name: "Pottery Class", DateText: "Sat, Nov 8", Location: "Studio 4"},
		},
	}
}

func TestWriteOutput_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatText, false); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}
	out := buf.String()

	wantLines := []string{
		"Run run-1: saved 4/20 events",
		"Pages: 3 processed, 1 empty, 1 failed, 0 skipped",
		"Methods: embedded-state=1, structured-data=1",
		"Dataset: /tmp/dataset_run-1.jsonl",
		"Duration: 1.5s",
	}
	for _, line := range wantLines {
		if !strings.Contains(out, line) {
			t.Errorf("output missing %q:\n%s", line, out)
		}
	}
	if strings.Contains(out, "Jazz Night") {
		t.Error("events should only be listed in verbose mode")
	}
}

func TestWriteOutput_TextVerbose(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatText, true); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}
	out := buf.String()

	wantLines := []string{
		"Events (3):",
		"  Jazz Night",
		"When: 2026-11-01 19:00",
		"Price: $25.00",
		"URL: https://www.eventbrite.com/e/1",
		"Where: Online",
		"When: Sat, Nov 8",
		"Where: Studio 4",
	}
	for _, line := range wantLines {
		if !strings.Contains(out, line) {
			t.Errorf("output missing %q:\n%s", line, out)
		}
	}

	result := sampleResult()
	result.Events = nil
	buf.Reset()
	WriteOutput(&buf, result, FormatText, true)
	if !strings.Contains(buf.String(), "No events to list.") {
		t.Errorf("expected empty notice:\n%s", buf.String())
	}
}

func TestWriteOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOutput(&buf, sampleResult(), FormatJSON, false); err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}

	var decoded struct {
		RunID  string `json:"run_id"`
		Target int    `json:"target"`
		Stats  struct {
			Saved   int            `json:"saved"`
			Methods map[string]int `json:"methods"`
		} `json:"stats"`
		Events []map[string]interface{} `json:"events"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if decoded.RunID != "run-1" || decoded.Target != 20 || decoded.Stats.Saved != 4 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Stats.Methods["embedded-state"] != 1 {
		t.Errorf("methods = %v", decoded.Stats.Methods)
	}
	if len(decoded.Events) != 3 {
		t.Errorf("got %d events", len(decoded.Events))
	}
}

func TestWriteOutput_UnknownFormat(t *testing.T) {
	if err := WriteOutput(&bytes.Buffer{}, sampleResult(), OutputFormat("xml"), false); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestOutputResult_Underfilled(t *testing.T) {
	r := sampleResult()
	if !r.Underfilled() {
		t.Error("4 of 20 should be underfilled")
	}
	r.Stats.Saved = 20
	if r.Underfilled() {
		t.Error("20 of 20 should not be underfilled")
	}
}
