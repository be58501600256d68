// Package feed implements the live feed synchronization pattern: a
// server-maintained collection changes at arbitrary times and is
// continuously reconciled into a locally ordered, deduplicated list.
//
// Every snapshot replaces the entire list; consumers treat each callback as
// authoritative and complete. Subscription errors are reported through the
// logger side channel while the last-known-good list is retained, so a feed
// outage never empties the rendered state.
//
// The notification bell is one instantiation of this pattern; any
// collection with a client-side ordering rule can reuse it.
package feed
