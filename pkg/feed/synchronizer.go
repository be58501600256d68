package feed

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/tokengate/pkg/apperr"
	"github.com/dmitrymomot/tokengate/pkg/docstore"
	"github.com/dmitrymomot/tokengate/pkg/logger"
)

// DecodeFunc converts a raw document into the feed's item type.
// Returning an error skips the record instead of failing the whole snapshot.
type DecodeFunc[T any] func(docstore.Document) (T, error)

// LessFunc is the local ordering rule applied to every snapshot.
type LessFunc[T any] func(a, b T) bool

// KeyFunc identifies an item for deduplication.
type KeyFunc[T any] func(T) string

// UpdateFunc receives the complete, ordered list after every snapshot.
// The slice is owned by the subscription; consumers must not retain and
// mutate it across invocations.
type UpdateFunc[T any] func(items []T)

// Synchronizer turns a document channel subscription into a locally
// ordered, deduplicated list. There is no guaranteed server-side ordering;
// the sort happens here on every snapshot.
type Synchronizer[T any] struct {
	channel docstore.Channel
	decode  DecodeFunc[T]
	less    LessFunc[T]
	key     KeyFunc[T]
	log     *slog.Logger
}

// Option configures a Synchronizer.
type Option[T any] func(*Synchronizer[T])

// WithLogger sets the side channel used to report feed errors.
func WithLogger[T any](log *slog.Logger) Option[T] {
	return func(s *Synchronizer[T]) {
		if log != nil {
			s.log = log
		}
	}
}

// WithKey enables deduplication by item key. When two records share a key,
// the one ordered first by the sort rule wins.
func WithKey[T any](key KeyFunc[T]) Option[T] {
	return func(s *Synchronizer[T]) {
		s.key = key
	}
}

// New creates a synchronizer. decode and less are required; passing nil
// panics to fail fast during wiring.
func New[T any](channel docstore.Channel, decode DecodeFunc[T], less LessFunc[T], opts ...Option[T]) *Synchronizer[T] {
	if channel == nil {
		panic("feed: channel is required")
	}
	if decode == nil {
		panic("feed: decode function is required")
	}
	if less == nil {
		panic("feed: less function is required")
	}

	s := &Synchronizer[T]{
		channel: channel,
		decode:  decode,
		less:    less,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscription is a live, locally ordered view over one query.
type Subscription[T any] struct {
	mu       sync.RWMutex
	latest   []T
	cancel   docstore.CancelFunc
	canceled atomic.Bool
}

// Latest returns the last-known-good list. It stays intact across feed
// errors so an outage never blanks the UI.
func (s *Subscription[T]) Latest() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Cancel tears the subscription down. Idempotent. Required before
// re-subscribing with a different filter, e.g. after re-authentication as
// another identity.
func (s *Subscription[T]) Cancel() {
	if s.canceled.CompareAndSwap(false, true) {
		s.cancel()
	}
}

// Subscribe opens the query and keeps the subscription's list current.
// onChange, if non-nil, is invoked with the full re-sorted list after every
// good snapshot; it is never invoked for failed snapshots.
func (s *Synchronizer[T]) Subscribe(ctx context.Context, q docstore.Query, onChange UpdateFunc[T]) (*Subscription[T], error) {
	sub := &Subscription[T]{}

	cancel, err := s.channel.Subscribe(ctx, q, func(snap docstore.Snapshot) {
		if snap.Err != nil {
			// Side channel only: the last good list stays rendered.
			s.log.Warn("feed snapshot failed, keeping last known state",
				logger.Collection(q.Collection),
				logger.Error(apperr.FeedError{Err: snap.Err}),
			)
			return
		}

		items := s.rebuild(snap, q.Collection)

		sub.mu.Lock()
		sub.latest = items
		sub.mu.Unlock()

		if onChange != nil && !sub.canceled.Load() {
			onChange(items)
		}
	})
	if err != nil {
		return nil, err
	}

	sub.cancel = cancel
	return sub, nil
}

// rebuild decodes, deduplicates and sorts one snapshot into a fresh list.
// Each call produces a complete replacement, never a patch of the previous
// list.
func (s *Synchronizer[T]) rebuild(snap docstore.Snapshot, collection string) []T {
	items := make([]T, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		item, err := s.decode(doc)
		if err != nil {
			s.log.Warn("skipping undecodable feed record",
				logger.Collection(collection),
				slog.String("doc_id", doc.ID),
				logger.Error(err),
			)
			continue
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool { return s.less(items[i], items[j]) })

	if s.key != nil {
		seen := make(map[string]struct{}, len(items))
		deduped := items[:0]
		for _, item := range items {
			k := s.key(item)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			deduped = append(deduped, item)
		}
		items = deduped
	}

	return items
}
