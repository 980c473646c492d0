package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pfrederiksen/eventbrite-events/internal/event"
)

// Writer persists batches of accepted events. Implementations must be safe
// for concurrent use.
type Writer interface {
	Write(ctx context.Context, events []event.Event) error
	Close() error
}

// ExpandDir resolves a leading ~/ and creates the directory if needed
func ExpandDir(dataDir string) (string, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return dataDir, nil
}

// Dataset appends events to a JSON-lines file, one record per line
type Dataset struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	enc   *json.Encoder
	count int
}

// NewDataset creates dataset_<runID>.jsonl inside dataDir
func NewDataset(dataDir, runID string) (*Dataset, error) {
	dir, err := ExpandDir(dataDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, fmt.Sprintf("dataset_%s.jsonl", runID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}

	return &Dataset{
		path: path,
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// Write appends events to the file
func (d *Dataset) Write(_ context.Context, events []event.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return errors.New("dataset is closed")
	}
	for i := range events {
		if err := d.enc.Encode(&events[i]); err != nil {
			return fmt.Errorf("writing dataset record: %w", err)
		}
		d.count++
	}
	return nil
}

// Path returns the dataset file location
func (d *Dataset) Path() string {
	return d.path
}

// Count returns how many records have been written
func (d *Dataset) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Close flushes and closes the file. It is safe to call more than once.
func (d *Dataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	if err != nil {
		return fmt.Errorf("closing dataset: %w", err)
	}
	return nil
}

// ReadDataset loads every record from a JSON-lines dataset file
func ReadDataset(path string) ([]event.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	var events []event.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var evt event.Event
		if err := json.Unmarshal([]byte(text), &evt); err != nil {
			return nil, fmt.Errorf("parsing dataset line %d: %w", line, err)
		}
		events = append(events, evt)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	return events, nil
}

// MultiWriter fans each batch out to several writers in order
type MultiWriter []Writer

// Write stops at the first failing writer
func (m MultiWriter) Write(ctx context.Context, events []event.Event) error {
	for _, w := range m {
		if err := w.Write(ctx, events); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer and joins their errors
func (m MultiWriter) Close() error {
	var errs []error
	for _, w := range m {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
