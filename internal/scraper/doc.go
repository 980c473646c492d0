// Package scraper fetches Eventbrite listing pages and parses them into
// goquery documents.
//
// Requests carry a configurable User-Agent, go through an optional proxy and
// are retried with exponential backoff. Client errors other than 429 are not
// retried.
package scraper
