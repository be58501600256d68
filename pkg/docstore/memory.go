package docstore

import (
	"context"
	"maps"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// MemoryChannel is an in-process Channel used in tests and local
// development. It mirrors the delivery contract of the mongo adapter:
// full snapshots on every change, serialized callbacks per subscription,
// immediate cancellation.
//
// Put and Merge exist so tests can play the role of the server-side
// collaborators that own collections the client never mutates.
type MemoryChannel struct {
	mu          sync.Mutex
	collections map[string]*memCollection
	querySubs   map[*memSubscription]struct{}
	docSubs     map[*memSubscription]struct{}
	closed      bool
}

type memCollection struct {
	order []string
	docs  map[string]map[string]any
}

type memSubscription struct {
	// query subscription fields
	query Query
	snapFn SnapshotFunc

	// document subscription fields
	collection string
	docID      string
	docFn      DocumentFunc

	queue    chan any
	canceled atomic.Bool
	stop     sync.Once
}

// NewMemoryChannel creates an empty in-memory channel.
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{
		collections: make(map[string]*memCollection),
		querySubs:   make(map[*memSubscription]struct{}),
		docSubs:     make(map[*memSubscription]struct{}),
	}
}

func (m *MemoryChannel) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	if collection == "" {
		return "", ErrEmptyCollection
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrChannelClosed
	}

	id := uuid.New().String()
	m.putLocked(collection, id, cloneData(data))
	m.notifyLocked(collection)
	return id, nil
}

func (m *MemoryChannel) CreateBatch(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return ErrEmptyBatch
	}
	// Validate everything up front so the batch is all-or-nothing.
	for _, w := range writes {
		if w.Collection == "" {
			return ErrEmptyCollection
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrChannelClosed
	}

	touched := make(map[string]struct{}, len(writes))
	for _, w := range writes {
		id := w.ID
		if id == "" {
			id = uuid.New().String()
		}
		m.putLocked(w.Collection, id, cloneData(w.Data))
		touched[w.Collection] = struct{}{}
	}
	for collection := range touched {
		m.notifyLocked(collection)
	}
	return nil
}

func (m *MemoryChannel) Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (CancelFunc, error) {
	if q.Collection == "" {
		return nil, ErrEmptyCollection
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrChannelClosed
	}

	sub := newMemSubscription()
	sub.query = q
	sub.snapFn = fn
	m.querySubs[sub] = struct{}{}
	go sub.run()

	// Initial authoritative snapshot, before any change arrives.
	sub.enqueue(Snapshot{Docs: m.queryLocked(q)})

	return m.cancelFunc(sub, m.querySubs), nil
}

func (m *MemoryChannel) SubscribeDocument(ctx context.Context, collection, id string, fn DocumentFunc) (CancelFunc, error) {
	if collection == "" {
		return nil, ErrEmptyCollection
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrChannelClosed
	}

	sub := newMemSubscription()
	sub.collection = collection
	sub.docID = id
	sub.docFn = fn
	m.docSubs[sub] = struct{}{}
	go sub.run()

	// Level-triggered: a document state that already exists is delivered
	// right away, not only on the next change.
	if c, ok := m.collections[collection]; ok {
		if data, ok := c.docs[id]; ok {
			sub.enqueue(Document{ID: id, Data: cloneData(data)})
		}
	}

	return m.cancelFunc(sub, m.docSubs), nil
}

// Put inserts or replaces a document with a caller-chosen id.
func (m *MemoryChannel) Put(collection, id string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.putLocked(collection, id, cloneData(data))
	m.notifyLocked(collection)
}

// Merge appends fields to an existing document, the way the server-side
// checkout extension appends a result to a client-created intent.
// Merging into a missing document is a no-op.
func (m *MemoryChannel) Merge(collection, id string, fields map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return
	}
	data, ok := c.docs[id]
	if !ok {
		return
	}
	maps.Copy(data, cloneData(fields))
	m.notifyLocked(collection)
}

// Delete removes a document if it exists.
func (m *MemoryChannel) Delete(collection, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return
	}
	if _, ok := c.docs[id]; !ok {
		return
	}
	delete(c.docs, id)
	for i, docID := range c.order {
		if docID == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	m.notifyLocked(collection)
}

// Get returns a copy of a stored document.
func (m *MemoryChannel) Get(collection, id string) (Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return Document{}, false
	}
	data, ok := c.docs[id]
	if !ok {
		return Document{}, false
	}
	return Document{ID: id, Data: cloneData(data)}, true
}

// Count returns the number of documents in a collection.
func (m *MemoryChannel) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return 0
	}
	return len(c.docs)
}

// Close shuts down the channel and cancels every subscription.
// Safe to call multiple times.
func (m *MemoryChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for sub := range m.querySubs {
		sub.cancel()
	}
	for sub := range m.docSubs {
		sub.cancel()
	}
	clear(m.querySubs)
	clear(m.docSubs)
	return nil
}

func (m *MemoryChannel) cancelFunc(sub *memSubscription, registry map[*memSubscription]struct{}) CancelFunc {
	return func() {
		sub.canceled.Store(true)

		m.mu.Lock()
		delete(registry, sub)
		m.mu.Unlock()

		sub.cancel()
	}
}

func (m *MemoryChannel) putLocked(collection, id string, data map[string]any) {
	c, ok := m.collections[collection]
	if !ok {
		c = &memCollection{docs: make(map[string]map[string]any)}
		m.collections[collection] = c
	}
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = data
}

func (m *MemoryChannel) queryLocked(q Query) []Document {
	c, ok := m.collections[q.Collection]
	if !ok {
		return nil
	}

	docs := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		doc := Document{ID: id, Data: c.docs[id]}
		if matches(doc, q.Filters) {
			docs = append(docs, Document{ID: id, Data: cloneData(c.docs[id])})
		}
	}
	return docs
}

func (m *MemoryChannel) notifyLocked(collection string) {
	for sub := range m.querySubs {
		if sub.query.Collection != collection {
			continue
		}
		sub.enqueue(Snapshot{Docs: m.queryLocked(sub.query)})
	}

	c := m.collections[collection]
	for sub := range m.docSubs {
		if sub.collection != collection {
			continue
		}
		if data, ok := c.docs[sub.docID]; ok {
			sub.enqueue(Document{ID: sub.docID, Data: cloneData(data)})
		}
	}
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		v, ok := doc.Lookup(f.Field)
		if !ok || !reflect.DeepEqual(v, f.Equals) {
			return false
		}
	}
	return true
}

func newMemSubscription() *memSubscription {
	return &memSubscription{queue: make(chan any, 64)}
}

func (s *memSubscription) run() {
	for item := range s.queue {
		// Cancellation drops already-enqueued deliveries so a canceled
		// subscription never produces further side effects.
		if s.canceled.Load() {
			continue
		}
		switch v := item.(type) {
		case Snapshot:
			s.snapFn(v)
		case Document:
			s.docFn(v)
		}
	}
}

// enqueue never blocks the mutation path. When the consumer lags, the
// oldest pending snapshot is discarded: each delivery is a complete result
// set, so only the newest one matters.
func (s *memSubscription) enqueue(item any) {
	if s.canceled.Load() {
		return
	}
	for {
		select {
		case s.queue <- item:
			return
		default:
			select {
			case <-s.queue:
			default:
			}
		}
	}
}

func (s *memSubscription) cancel() {
	s.canceled.Store(true)
	s.stop.Do(func() { close(s.queue) })
}

func cloneData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneData(nested)
			continue
		}
		out[k] = v
	}
	return out
}
