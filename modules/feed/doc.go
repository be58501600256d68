// Package feed exposes the live system notification feed as a server-sent
// event stream. Every event carries the complete, freshly sorted list, never
// a delta, so a client that misses frames is still consistent after the next
// one.
package feed
