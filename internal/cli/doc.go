// Package cli implements the command-line interface for eventbrite-events.
//
// The root command loads configuration (YAML file, .env, EVENTBRITE_* variables
// and flags), opens the storage sinks, optionally serves metrics, runs the
// crawl and prints a run summary as text or JSON.
package cli
