// Package storage persists accepted events.
//
// Every crawl writes a JSON-lines dataset file named after its run id. A
// Postgres table can be written alongside it, upserting on the event's
// identity key so repeated crawls refresh rows instead of duplicating them.
package storage
