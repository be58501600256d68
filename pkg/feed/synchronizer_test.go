package feed_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tokengate/pkg/docstore"
	"github.com/dmitrymomot/tokengate/pkg/feed"
)

// captureChannel hands snapshot delivery control to the test.
type captureChannel struct {
	fn        docstore.SnapshotFunc
	cancelled int
}

func (c *captureChannel) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	return "", nil
}

func (c *captureChannel) CreateBatch(ctx context.Context, writes []docstore.Write) error {
	return nil
}

func (c *captureChannel) Subscribe(ctx context.Context, q docstore.Query, fn docstore.SnapshotFunc) (docstore.CancelFunc, error) {
	c.fn = fn
	return func() { c.cancelled++ }, nil
}

func (c *captureChannel) SubscribeDocument(ctx context.Context, collection, id string, fn docstore.DocumentFunc) (docstore.CancelFunc, error) {
	return func() {}, nil
}

type item struct {
	ID   string
	Rank int64
}

func decodeItem(doc docstore.Document) (item, error) {
	rank, ok := doc.Int64("rank")
	if !ok {
		return item{}, errors.New("missing rank")
	}
	return item{ID: doc.ID, Rank: rank}, nil
}

func byRankDesc(a, b item) bool { return a.Rank > b.Rank }

func newTestSync(t *testing.T, opts ...feed.Option[item]) (*feed.Synchronizer[item], *captureChannel) {
	t.Helper()
	ch := &captureChannel{}
	return feed.New(ch, decodeItem, byRankDesc, opts...), ch
}

func doc(id string, rank int64) docstore.Document {
	return docstore.Document{ID: id, Data: map[string]any{"rank": rank}}
}

func TestSynchronizer_SortsEverySnapshot(t *testing.T) {
	t.Parallel()

	sync, ch := newTestSync(t)

	var calls [][]item
	sub, err := sync.Subscribe(context.Background(),
		docstore.Query{Collection: "items"},
		func(items []item) { calls = append(calls, items) },
	)
	require.NoError(t, err)
	t.Cleanup(sub.Cancel)

	// Arbitrary permutation in, fixed order out.
	ch.fn(docstore.Snapshot{Docs: []docstore.Document{doc("b", 2), doc("c", 3), doc("a", 1)}})

	require.Len(t, calls, 1)
	assert.Equal(t, []item{{ID: "c", Rank: 3}, {ID: "b", Rank: 2}, {ID: "a", Rank: 1}}, calls[0])
	assert.Equal(t, calls[0], sub.Latest())
}

func TestSynchronizer_SnapshotReplacesList(t *testing.T) {
	t.Parallel()

	sync, ch := newTestSync(t)

	sub, err := sync.Subscribe(context.Background(), docstore.Query{Collection: "items"}, nil)
	require.NoError(t, err)
	t.Cleanup(sub.Cancel)

	ch.fn(docstore.Snapshot{Docs: []docstore.Document{doc("a", 1), doc("b", 2)}})
	require.Len(t, sub.Latest(), 2)

	// The next snapshot is authoritative even though it is smaller.
	ch.fn(docstore.Snapshot{Docs: []docstore.Document{doc("b", 2)}})
	require.Len(t, sub.Latest(), 1)
	assert.Equal(t, "b", sub.Latest()[0].ID)
}

func TestSynchronizer_ErrorRetainsLastGoodList(t *testing.T) {
	t.Parallel()

	sync, ch := newTestSync(t)

	updates := 0
	sub, err := sync.Subscribe(context.Background(),
		docstore.Query{Collection: "items"},
		func([]item) { updates++ },
	)
	require.NoError(t, err)
	t.Cleanup(sub.Cancel)

	ch.fn(docstore.Snapshot{Docs: []docstore.Document{doc("a", 1), doc("b", 2)}})
	require.Equal(t, 1, updates)
	good := sub.Latest()

	ch.fn(docstore.Snapshot{Err: errors.New("stream reset")})

	assert.Equal(t, good, sub.Latest(), "outage must not blank the list")
	assert.Equal(t, 1, updates, "failed snapshots must not reach consumers")
}

func TestSynchronizer_SkipsUndecodableRecords(t *testing.T) {
	t.Parallel()

	sync, ch := newTestSync(t)

	sub, err := sync.Subscribe(context.Background(), docstore.Query{Collection: "items"}, nil)
	require.NoError(t, err)
	t.Cleanup(sub.Cancel)

	ch.fn(docstore.Snapshot{Docs: []docstore.Document{
		doc("good", 1),
		{ID: "broken", Data: map[string]any{"rank": "not-a-number"}},
	}})

	require.Len(t, sub.Latest(), 1)
	assert.Equal(t, "good", sub.Latest()[0].ID)
}

func TestSynchronizer_Deduplicates(t *testing.T) {
	t.Parallel()

	sync, ch := newTestSync(t, feed.WithKey[item](func(i item) string { return i.ID }))

	sub, err := sync.Subscribe(context.Background(), docstore.Query{Collection: "items"}, nil)
	require.NoError(t, err)
	t.Cleanup(sub.Cancel)

	ch.fn(docstore.Snapshot{Docs: []docstore.Document{doc("a", 1), doc("a", 5), doc("b", 2)}})

	require.Len(t, sub.Latest(), 2)
	assert.Equal(t, item{ID: "a", Rank: 5}, sub.Latest()[0], "first by sort order wins")
}

func TestSubscription_CancelIdempotent(t *testing.T) {
	t.Parallel()

	sync, ch := newTestSync(t)

	sub, err := sync.Subscribe(context.Background(), docstore.Query{Collection: "items"}, nil)
	require.NoError(t, err)

	sub.Cancel()
	sub.Cancel()
	assert.Equal(t, 1, ch.cancelled)
}

func TestNew_PanicsOnMissingDeps(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { feed.New[item](nil, decodeItem, byRankDesc) })
	assert.Panics(t, func() { feed.New[item](&captureChannel{}, nil, byRankDesc) })
	assert.Panics(t, func() { feed.New[item](&captureChannel{}, decodeItem, nil) })
}
