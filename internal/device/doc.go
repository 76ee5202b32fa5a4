// Package device drives ceremony steps against a secure element.
//
// Ownership boundary:
// - protocol generation selection (command table, framing, paging)
// - the per-exchange session state machine
// - one operation per ceremony step
//
// Lifecycle of one exchange:
// - idle -> sending(1..n) -> awaiting pages -> complete
//
// - any non-success status or transport failure moves to failed; no
// later chunk is sent and no partial result is returned.
//
// The secure element is a single-threaded responder. A Driver runs one
// exchange at a time; overlapping calls are rejected rather than queued,
// and callers that share a Driver must serialize access themselves.
package device
