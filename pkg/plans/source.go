package plans

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/dmitrymomot/tokengate/pkg/apperr"
	"github.com/dmitrymomot/tokengate/pkg/docstore"
	"github.com/dmitrymomot/tokengate/pkg/feed"
)

// Source loads the active plan catalog, ordered by token volume ascending.
type Source interface {
	Load(ctx context.Context) ([]Plan, error)
}

// DocstoreSource reads the catalog from the document store. The store
// exposes only create/subscribe, so a one-shot load is a subscription that
// is cancelled after its first snapshot.
type DocstoreSource struct {
	channel docstore.Channel
	sync    *feed.Synchronizer[Plan]
	timeout time.Duration
}

// DocstoreSourceOption configures a DocstoreSource.
type DocstoreSourceOption func(*DocstoreSource)

// WithLoadTimeout bounds how long Load waits for the first snapshot.
func WithLoadTimeout(d time.Duration) DocstoreSourceOption {
	return func(s *DocstoreSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSourceLogger sets the logger used by the underlying synchronizer.
func WithSourceLogger(log *slog.Logger) DocstoreSourceOption {
	return func(s *DocstoreSource) {
		if log != nil {
			s.sync = newPlanSync(s.channel, log)
		}
	}
}

// NewDocstoreSource creates a catalog source over a document channel.
func NewDocstoreSource(channel docstore.Channel, opts ...DocstoreSourceOption) *DocstoreSource {
	s := &DocstoreSource{
		channel: channel,
		sync:    newPlanSync(channel, slog.Default()),
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newPlanSync(channel docstore.Channel, log *slog.Logger) *feed.Synchronizer[Plan] {
	return feed.New(channel, Decode, byTokensAsc, feed.WithLogger[Plan](log))
}

func activeQuery() docstore.Query {
	return docstore.Query{
		Collection: Collection,
		Filters:    []docstore.Filter{docstore.Where("status", StatusActive)},
	}
}

// Load returns the active plans from the first snapshot, sorted by tokens
// ascending.
func (s *DocstoreSource) Load(ctx context.Context) ([]Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	first := make(chan []Plan, 1)
	sub, err := s.sync.Subscribe(ctx, activeQuery(), func(items []Plan) {
		select {
		case first <- items:
		default:
		}
	})
	if err != nil {
		return nil, apperr.RemoteError{Code: "unavailable", Err: err}
	}
	defer sub.Cancel()

	select {
	case items := <-first:
		return items, nil
	case <-ctx.Done():
		return nil, apperr.ErrTimeout
	}
}

// Watch keeps a live catalog subscription open, for UIs that re-render the
// pricing page when the catalog changes.
func (s *DocstoreSource) Watch(ctx context.Context, onChange feed.UpdateFunc[Plan]) (*feed.Subscription[Plan], error) {
	return s.sync.Subscribe(ctx, activeQuery(), onChange)
}

// byTokensAsc orders the catalog by token volume, smallest package first.
func byTokensAsc(a, b Plan) bool { return a.Tokens < b.Tokens }

// SortPlans sorts a catalog in place using the canonical ordering.
func SortPlans(items []Plan) {
	sort.SliceStable(items, func(i, j int) bool { return byTokensAsc(items[i], items[j]) })
}
