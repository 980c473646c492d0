// Package event defines the normalized event record produced by the crawler.
//
// Every extraction strategy converts its own raw shape into Event and stamps it
// with the strategy that produced it. The identity key (ID, else URL, else Name)
// is what the ledger deduplicates on across a whole crawl run.
package event
