package docstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tokengate/pkg/docstore"
)

func waitSnapshot(t *testing.T, ch <-chan docstore.Snapshot) docstore.Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return docstore.Snapshot{}
	}
}

func waitDocument(t *testing.T, ch <-chan docstore.Document) docstore.Document {
	t.Helper()
	select {
	case doc := <-ch:
		return doc
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for document")
		return docstore.Document{}
	}
}

func TestMemoryChannel_CreateAndGet(t *testing.T) {
	t.Parallel()

	m := docstore.NewMemoryChannel()
	t.Cleanup(func() { _ = m.Close() })

	id, err := m.Create(context.Background(), "subscription_plans", map[string]any{
		"priceRef": "price_123",
		"tokens":   int64(5000),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, ok := m.Get("subscription_plans", id)
	require.True(t, ok)

	ref, ok := doc.String("priceRef")
	require.True(t, ok)
	assert.Equal(t, "price_123", ref)

	tokens, ok := doc.Int64("tokens")
	require.True(t, ok)
	assert.Equal(t, int64(5000), tokens)
}

func TestMemoryChannel_Create_EmptyCollection(t *testing.T) {
	t.Parallel()

	m := docstore.NewMemoryChannel()
	t.Cleanup(func() { _ = m.Close() })

	_, err := m.Create(context.Background(), "", nil)
	assert.ErrorIs(t, err, docstore.ErrEmptyCollection)
}

func TestMemoryChannel_Subscribe_InitialAndUpdates(t *testing.T) {
	t.Parallel()

	m := docstore.NewMemoryChannel()
	t.Cleanup(func() { _ = m.Close() })

	m.Put("system_notifications", "n1", map[string]any{"isActive": true})
	m.Put("system_notifications", "n2", map[string]any{"isActive": false})

	snaps := make(chan docstore.Snapshot, 16)
	cancel, err := m.Subscribe(context.Background(),
		docstore.Query{
			Collection: "system_notifications",
			Filters:    []docstore.Filter{docstore.Where("isActive", true)},
		},
		func(s docstore.Snapshot) { snaps <- s },
	)
	require.NoError(t, err)
	t.Cleanup(cancel)

	initial := waitSnapshot(t, snaps)
	require.NoError(t, initial.Err)
	require.Len(t, initial.Docs, 1)
	assert.Equal(t, "n1", initial.Docs[0].ID)

	m.Put("system_notifications", "n3", map[string]any{"isActive": true})

	next := waitSnapshot(t, snaps)
	require.Len(t, next.Docs, 2)
}

func TestMemoryChannel_Subscribe_FullSnapshotNotDelta(t *testing.T) {
	t.Parallel()

	m := docstore.NewMemoryChannel()
	t.Cleanup(func() { _ = m.Close() })

	snaps := make(chan docstore.Snapshot, 16)
	cancel, err := m.Subscribe(context.Background(),
		docstore.Query{Collection: "system_notifications"},
		func(s docstore.Snapshot) { snaps <- s },
	)
	require.NoError(t, err)
	t.Cleanup(cancel)

	waitSnapshot(t, snaps) // empty initial

	m.Put("system_notifications", "a", map[string]any{"title": "first"})
	require.Len(t, waitSnapshot(t, snaps).Docs, 1)

	m.Put("system_notifications", "b", map[string]any{"title": "second"})
	// The second delivery carries both documents, not just the new one.
	require.Len(t, waitSnapshot(t, snaps).Docs, 2)

	m.Delete("system_notifications", "a")
	require.Len(t, waitSnapshot(t, snaps).Docs, 1)
}

func TestMemoryChannel_SubscribeDocument_LevelTriggered(t *testing.T) {
	t.Parallel()

	m := docstore.NewMemoryChannel()
	t.Cleanup(func() { _ = m.Close() })

	// The result field is already present before anyone subscribes.
	m.Put("checkout_sessions", "intent-1", map[string]any{
		"planPriceRef": "price_123",
		"sessionId":    "cs_test_1",
	})

	docs := make(chan docstore.Document, 16)
	cancel, err := m.SubscribeDocument(context.Background(), "checkout_sessions", "intent-1",
		func(d docstore.Document) { docs <- d },
	)
	require.NoError(t, err)
	t.Cleanup(cancel)

	doc := waitDocument(t, docs)
	sessionID, ok := doc.String("sessionId")
	require.True(t, ok)
	assert.Equal(t, "cs_test_1", sessionID)
}

func TestMemoryChannel_SubscribeDocument_MergeDelivers(t *testing.T) {
	t.Parallel()

	m := docstore.NewMemoryChannel()
	t.Cleanup(func() { _ = m.Close() })

	m.Put("checkout_sessions", "intent-2", map[string]any{"planPriceRef": "price_9"})

	docs := make(chan docstore.Document, 16)
	cancel, err := m.SubscribeDocument(context.Background(), "checkout_sessions", "intent-2",
		func(d docstore.Document) { docs <- d },
	)
	require.NoError(t, err)
	t.Cleanup(cancel)

	waitDocument(t, docs) // initial state without result

	m.Merge("checkout_sessions", "intent-2", map[string]any{
		"error": map[string]any{"message": "card declined"},
	})

	for {
		doc := waitDocument(t, docs)
		if msg, ok := doc.String("error.message"); ok {
			assert.Equal(t, "card declined", msg)
			return
		}
	}
}

func TestMemoryChannel_CancelStopsDeliveries(t *testing.T) {
	t.Parallel()

	m := docstore.NewMemoryChannel()
	t.Cleanup(func() { _ = m.Close() })

	snaps := make(chan docstore.Snapshot, 16)
	cancel, err := m.Subscribe(context.Background(),
		docstore.Query{Collection: "system_notifications"},
		func(s docstore.Snapshot) { snaps <- s },
	)
	require.NoError(t, err)

	waitSnapshot(t, snaps)
	cancel()

	m.Put("system_notifications", "late", map[string]any{"isActive": true})

	select {
	case snap := <-snaps:
		t.Fatalf("unexpected delivery after cancel: %+v", snap)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMemoryChannel_CreateBatch_Atomic(t *testing.T) {
	t.Parallel()

	m := docstore.NewMemoryChannel()
	t.Cleanup(func() { _ = m.Close() })

	err := m.CreateBatch(context.Background(), []docstore.Write{
		{Collection: "users", ID: "u1", Data: map[string]any{"role": "user"}},
		{Collection: "", ID: "c1", Data: map[string]any{"stub": true}},
	})
	require.ErrorIs(t, err, docstore.ErrEmptyCollection)

	// The invalid second write must not leave the first one behind.
	assert.Zero(t, m.Count("users"))

	err = m.CreateBatch(context.Background(), []docstore.Write{
		{Collection: "users", ID: "u1", Data: map[string]any{"role": "user"}},
		{Collection: "customers", ID: "u1", Data: map[string]any{"stub": true}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count("users"))
	assert.Equal(t, 1, m.Count("customers"))
}

func TestMemoryChannel_ClosedChannel(t *testing.T) {
	t.Parallel()

	m := docstore.NewMemoryChannel()
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err := m.Create(context.Background(), "users", nil)
	assert.ErrorIs(t, err, docstore.ErrChannelClosed)

	_, err = m.Subscribe(context.Background(), docstore.Query{Collection: "users"}, func(docstore.Snapshot) {})
	assert.ErrorIs(t, err, docstore.ErrChannelClosed)
}

func TestDocument_Lookup(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	doc := docstore.Document{
		ID: "d1",
		Data: map[string]any{
			"isActive":  true,
			"createdAt": created,
			"error":     map[string]any{"message": "nope"},
		},
	}

	b, ok := doc.Bool("isActive")
	require.True(t, ok)
	assert.True(t, b)

	ts, ok := doc.Time("createdAt")
	require.True(t, ok)
	assert.Equal(t, created, ts)

	msg, ok := doc.String("error.message")
	require.True(t, ok)
	assert.Equal(t, "nope", msg)

	assert.False(t, doc.Has("sessionId"))
	_, ok = doc.String("error.code")
	assert.False(t, ok)
}
