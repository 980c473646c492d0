// Package crawl drives the extraction pipeline over listing pages.
//
// Processor is the per-page core: a parsed document and its page number go
// in, accepted events and an optional next page come out. Crawler feeds it
// pages from a Fetcher with bounded concurrency, persists what it accepts
// and enqueues the pages it recommends until the ledger's target is met or
// the queue runs dry.
package crawl
