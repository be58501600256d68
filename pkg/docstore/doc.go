// Package docstore is a thin abstraction over a document-oriented store:
// create a document, subscribe to a query or a single document, stop
// subscribing.
//
// Both checkout handshaking and the live notification feed run on this
// surface alone, which keeps their protocol logic independent of the
// concrete backend.
//
// # Delivery contract
//
// Subscriptions deliver complete snapshots, never deltas. Each callback
// invocation carries the full, authoritative result set for the query (or
// the full current document), including one delivery immediately at
// subscribe time. Consumers replace their local state wholesale on every
// delivery.
//
// Cancellation is immediate: once the returned CancelFunc returns, no new
// callback invocation begins, and deliveries already queued are dropped.
// Callers racing a callback against its own cancellation (the checkout
// broker's timeout-vs-result race) still need their own settle guard for
// an invocation that has already started.
//
// # Implementations
//
//   - MemoryChannel: in-process, for tests and local development. Extra
//     Put/Merge mutators let tests act as the server-side collaborators.
//   - MongoChannel: change streams against a replica set; every event
//     triggers a full re-query so snapshots stay authoritative.
package docstore
