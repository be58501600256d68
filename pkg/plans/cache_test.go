package plans_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tokengate/pkg/plans"
)

type fakeRedis struct {
	store    map[string]string
	getErr   error
	setErr   error
	getCalls int
	setCalls int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{store: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.getCalls++
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	if v, ok := f.store[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.setCalls++
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.store[key] = string(v)
	case string:
		f.store[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

type staticSource struct {
	items []plans.Plan
	err   error
	calls int
}

func (s *staticSource) Load(ctx context.Context) ([]plans.Plan, error) {
	s.calls++
	return s.items, s.err
}

func TestCachedSource_MissThenHit(t *testing.T) {
	t.Parallel()

	inner := &staticSource{items: []plans.Plan{{ID: "p1", PriceRef: "price_1", Tokens: 10000}}}
	rdb := newFakeRedis()
	src := plans.NewCachedSource(inner, rdb)

	items, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, rdb.setCalls)

	// Second load is served from cache.
	items, err = src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedSource_RedisDownFallsThrough(t *testing.T) {
	t.Parallel()

	inner := &staticSource{items: []plans.Plan{{ID: "p1"}}}
	rdb := newFakeRedis()
	rdb.getErr = errors.New("connection refused")
	rdb.setErr = errors.New("connection refused")

	src := plans.NewCachedSource(inner, rdb)

	items, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedSource_CorruptedEntryReloads(t *testing.T) {
	t.Parallel()

	inner := &staticSource{items: []plans.Plan{{ID: "p1"}}}
	rdb := newFakeRedis()
	rdb.store["tokengate:plans:v1"] = "{not json"

	src := plans.NewCachedSource(inner, rdb)

	items, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, inner.calls)

	// The corrupted entry was overwritten with a good one.
	var cached []plans.Plan
	require.NoError(t, json.Unmarshal([]byte(rdb.store["tokengate:plans:v1"]), &cached))
	require.Len(t, cached, 1)
}

func TestCachedSource_SourceErrorNotCached(t *testing.T) {
	t.Parallel()

	inner := &staticSource{err: errors.New("store down")}
	rdb := newFakeRedis()
	src := plans.NewCachedSource(inner, rdb)

	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.Zero(t, rdb.setCalls)
}

func TestNewCachedSource_PanicsOnNilDeps(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { plans.NewCachedSource(nil, newFakeRedis()) })
	assert.Panics(t, func() { plans.NewCachedSource(&staticSource{}, nil) })
}
