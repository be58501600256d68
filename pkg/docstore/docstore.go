package docstore

import (
	"context"
	"strings"
	"time"
)

// Document is a single record from a collection. Data holds the stored
// fields; nested objects appear as map[string]any.
type Document struct {
	ID   string
	Data map[string]any
}

// Filter is an equality predicate on a single field.
type Filter struct {
	Field  string
	Equals any
}

// Query selects documents from one collection. All filters must match.
type Query struct {
	Collection string
	Filters    []Filter
}

// Where is a convenience constructor for an equality filter.
func Where(field string, equals any) Filter {
	return Filter{Field: field, Equals: equals}
}

// Snapshot is one complete, authoritative result set for a query.
// Consumers must replace their local state with Docs on every delivery,
// never patch incrementally.
//
// A non-nil Err reports a subscription failure through the same callback;
// Docs is nil in that case and the consumer should keep its last good state.
type Snapshot struct {
	Docs []Document
	Err  error
}

// SnapshotFunc receives query snapshots. Invocations for one subscription
// are serialized; implementations must not assume any particular goroutine.
type SnapshotFunc func(Snapshot)

// DocumentFunc receives the current state of a single watched document.
// Delivery is level-triggered: the state at subscribe time is delivered
// immediately, then again after every change.
type DocumentFunc func(Document)

// CancelFunc stops a subscription. After it returns, no new callback
// invocation will begin; combine with an application-level settle guard if
// an in-flight invocation must also be neutralized.
type CancelFunc func()

// Write is one entry of an atomic batch.
type Write struct {
	Collection string
	ID         string // assigned by the store when empty
	Data       map[string]any
}

// Channel is the only I/O surface the brokers in this module use: create a
// document, subscribe to a query or a single document, stop subscribing.
type Channel interface {
	// Create inserts a new document and returns its store-assigned id.
	Create(ctx context.Context, collection string, data map[string]any) (string, error)

	// CreateBatch inserts all writes or none of them.
	CreateBatch(ctx context.Context, writes []Write) error

	// Subscribe delivers a full snapshot for the query immediately and after
	// every matching change.
	Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (CancelFunc, error)

	// SubscribeDocument watches one document by id. The current state, if
	// the document exists, is delivered immediately.
	SubscribeDocument(ctx context.Context, collection, id string, fn DocumentFunc) (CancelFunc, error)
}

// Lookup resolves a dot-separated path ("error.message") inside the
// document data.
func (d Document) Lookup(path string) (any, bool) {
	var cur any = d.Data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether a field is present at the given path.
func (d Document) Has(path string) bool {
	_, ok := d.Lookup(path)
	return ok
}

// String returns the string value at path, if present and a string.
func (d Document) String(path string) (string, bool) {
	v, ok := d.Lookup(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns the boolean value at path, if present and a bool.
func (d Document) Bool(path string) (bool, bool) {
	v, ok := d.Lookup(path)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Int64 returns the numeric value at path widened to int64.
func (d Document) Int64(path string) (int64, bool) {
	v, ok := d.Lookup(path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// Time returns the timestamp at path, if present and a time.Time.
func (d Document) Time(path string) (time.Time, bool) {
	v, ok := d.Lookup(path)
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	return t, ok
}
