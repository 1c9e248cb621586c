// Package changefeed fans out ledger change events to in-process
// consumers such as the notification relay and IPC event queries.
//
// Delivery is at-least-once from the consumer's perspective: the feed
// never blocks a publisher, and a consumer that falls behind the bounded
// buffer observes a sequence gap and resynchronizes from the ledger
// itself. The ledger stays the source of truth; the feed is only a hint
// that something changed.
package changefeed
