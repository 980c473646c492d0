package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"

	"github.com/pfrederiksen/eventbrite-events/internal/event"
)

const insertBatchSize = 50

// eventColumns is the insert order; eventArgs must match it
var eventColumns = []string{
	"identity_key", "event_id", "name", "summary", "url", "image_url",
	"start_date", "start_time", "end_date", "end_time", "timezone",
	"is_online_event", "is_free", "price", "category",
	"organizer_id", "organizer_name", "tickets_url", "location", "date_text",
	"source", "extraction_method", "run_id",
}

// PostgresWriter upserts events into the events table
type PostgresWriter struct {
	db    *sql.DB
	runID string
}

// NewPostgresWriter connects, waits for the server to answer and creates the
// schema if it does not exist yet.
func NewPostgresWriter(ctx context.Context, dsn, runID string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	ping := func() error { return db.PingContext(ctx) }
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	if err := backoff.Retry(ping, backoff.WithContext(backoff.WithMaxRetries(b, 5), ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	pw := &PostgresWriter{db: db, runID: runID}
	if err := pw.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating postgres: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id                SERIAL PRIMARY KEY,
			identity_key      TEXT UNIQUE,
			event_id          TEXT NOT NULL DEFAULT '',
			name              TEXT NOT NULL DEFAULT '',
			summary           TEXT NOT NULL DEFAULT '',
			url               TEXT NOT NULL DEFAULT '',
			image_url         TEXT NOT NULL DEFAULT '',
			start_date        TEXT NOT NULL DEFAULT '',
			start_time        TEXT NOT NULL DEFAULT '',
			end_date          TEXT NOT NULL DEFAULT '',
			end_time          TEXT NOT NULL DEFAULT '',
			timezone          TEXT NOT NULL DEFAULT '',
			is_online_event   BOOLEAN NOT NULL DEFAULT FALSE,
			is_free           BOOLEAN NOT NULL DEFAULT FALSE,
			price             TEXT NOT NULL DEFAULT '',
			category          TEXT NOT NULL DEFAULT '',
			organizer_id      TEXT NOT NULL DEFAULT '',
			organizer_name    TEXT NOT NULL DEFAULT '',
			tickets_url       TEXT NOT NULL DEFAULT '',
			location          TEXT NOT NULL DEFAULT '',
			date_text         TEXT NOT NULL DEFAULT '',
			source            TEXT NOT NULL DEFAULT '',
			extraction_method TEXT NOT NULL DEFAULT '',
			run_id            TEXT NOT NULL DEFAULT '',
			scraped_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_events_start_date ON events(start_date);
		CREATE INDEX IF NOT EXISTS idx_events_run_id     ON events(run_id);
	`)
	return err
}

// Write upserts events in batches. Rows without an identity key are always
// inserted.
func (pw *PostgresWriter) Write(ctx context.Context, events []event.Event) error {
	for i := 0; i < len(events); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(events) {
			end = len(events)
		}

		query, args := upsertStatement(events[i:end], pw.runID)
		if query == "" {
			continue
		}
		if _, err := pw.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upserting events: %w", err)
		}
	}
	return nil
}

// Close closes the connection pool
func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// upsertStatement builds one multi-row upsert. A key repeated within the
// batch keeps its first occurrence, since Postgres rejects touching the same
// row twice in one statement.
func upsertStatement(batch []event.Event, runID string) (string, []interface{}) {
	n := len(eventColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*n)
	seen := make(map[string]bool, len(batch))

	for i := range batch {
		key := batch[i].IdentityKey()
		if key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}

		base := len(valueStrings) * n
		placeholders := make([]string, n)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		// NULL keys never conflict
		placeholders[0] = fmt.Sprintf("NULLIF($%d, '')", base+1)

		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs, eventArgs(&batch[i], key, runID)...)
	}

	if len(valueStrings) == 0 {
		return "", nil
	}

	updates := make([]string, 0, n)
	for _, col := range eventColumns[1:] {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	updates = append(updates, "scraped_at = NOW()")

	query := fmt.Sprintf(`
		INSERT INTO events (%s)
		VALUES %s
		ON CONFLICT (identity_key) DO UPDATE SET %s
	`, strings.Join(eventColumns, ", "), strings.Join(valueStrings, ","), strings.Join(updates, ", "))

	return query, valueArgs
}

func eventArgs(e *event.Event, key, runID string) []interface{} {
	return []interface{}{
		key, e.ID, e.Name, e.Summary, e.URL, e.ImageURL,
		e.StartDate, e.StartTime, e.EndDate, e.EndTime, e.Timezone,
		e.IsOnlineEvent, e.IsFree, e.Price, e.Category,
		e.OrganizerID, e.OrganizerName, e.TicketsURL, e.Location, e.DateText,
		e.Source, string(e.ExtractionMethod), runID,
	}
}
