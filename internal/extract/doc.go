// Package extract recovers event records from a fetched listing page.
//
// Three independent strategies are tried in a fixed order, and the first one
// that yields any events wins:
//
//  1. EmbeddedState: the window.__SERVER_DATA__ JSON blob the origin server
//     injects into an inline script.
//  2. StructuredData: schema.org JSON-LD blocks (ItemList or single Event).
//  3. Markup: event cards scraped from the rendered HTML.
//
// Each strategy decodes its own raw shape and converts it to event.Event with
// its own normalization. Locating embedded blobs is a best-effort text scan:
// a strategy that cannot find or decode its data reports nothing and the
// Coordinator moves on. Nothing in this package returns an error.
package extract
