// Package notifications models the server-owned notification collection and
// exposes it as a live, locally ordered feed.
//
// Records are read-only from the client's perspective: the rendered list is
// always a re-sort of the latest snapshot, never an incremental patch that
// could diverge from server truth.
package notifications
