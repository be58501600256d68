package notifications

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/tokengate/pkg/docstore"
	"github.com/dmitrymomot/tokengate/pkg/feed"
)

// Feed is the notification bell's live view: active records only, newest
// first, records without a timestamp last.
type Feed struct {
	sync *feed.Synchronizer[Record]
}

// FeedOption configures a Feed.
type FeedOption func(*feedConfig)

type feedConfig struct {
	log *slog.Logger
}

// WithFeedLogger sets the side channel for subscription errors.
func WithFeedLogger(log *slog.Logger) FeedOption {
	return func(c *feedConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// NewFeed builds the notification feed over a document channel.
func NewFeed(channel docstore.Channel, opts ...FeedOption) *Feed {
	cfg := &feedConfig{log: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Feed{
		sync: feed.New(channel, Decode, byCreatedDesc,
			feed.WithLogger[Record](cfg.log),
			feed.WithKey[Record](func(r Record) string { return r.ID }),
		),
	}
}

// Subscribe opens the live subscription. The returned subscription must be
// cancelled when the consuming context deactivates (sign-out, identity
// switch), and re-opened afterwards.
func (f *Feed) Subscribe(ctx context.Context, onChange feed.UpdateFunc[Record]) (*feed.Subscription[Record], error) {
	return f.sync.Subscribe(ctx, docstore.Query{
		Collection: Collection,
		Filters:    []docstore.Filter{docstore.Where("isActive", true)},
	}, onChange)
}

// byCreatedDesc sorts strictly by createdAt descending with absent
// timestamps as epoch zero. A deliberate client-side substitute for a
// server-side compound sort: same-instant records and timestamp-less
// records get this fixed tie-break, not arrival order.
func byCreatedDesc(a, b Record) bool {
	return a.CreatedOrZero().After(b.CreatedOrZero())
}
