package siteconfig

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/tokengate/pkg/docstore"
	"github.com/dmitrymomot/tokengate/pkg/logger"
)

// Collection and DocumentID locate the single site configuration document.
const (
	Collection = "site_config"
	DocumentID = "main"
)

// Config is the server-controlled site state every navigation decision
// depends on.
type Config struct {
	IsMaintenanceMode bool
	GoogleAnalyticsID string
	YandexMetrikaID   string
}

// Decode converts the raw configuration document.
func Decode(doc docstore.Document) Config {
	var cfg Config
	cfg.IsMaintenanceMode, _ = doc.Bool("isMaintenanceMode")
	cfg.GoogleAnalyticsID, _ = doc.String("googleAnalyticsId")
	cfg.YandexMetrikaID, _ = doc.String("yandexMetrikaId")
	return cfg
}

// Watcher keeps the latest site configuration in memory. Subscription
// failures keep the last good value: losing the config stream must not
// flip the site in or out of maintenance mode.
type Watcher struct {
	mu       sync.RWMutex
	current  Config
	cancel   docstore.CancelFunc
	onUpdate func(Config)
	log      *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithOnUpdate registers a callback fired after every config change.
func WithOnUpdate(fn func(Config)) WatcherOption {
	return func(w *Watcher) {
		w.onUpdate = fn
	}
}

// WithWatcherLogger sets the watcher logger.
func WithWatcherLogger(log *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// NewWatcher subscribes to the configuration document. The zero Config is
// in effect until the first delivery arrives.
func NewWatcher(ctx context.Context, channel docstore.Channel, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{log: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}

	cancel, err := channel.SubscribeDocument(ctx, Collection, DocumentID, func(doc docstore.Document) {
		cfg := Decode(doc)

		w.mu.Lock()
		changed := cfg != w.current
		w.current = cfg
		w.mu.Unlock()

		if changed {
			w.log.Info("site configuration updated",
				slog.Bool("maintenance_mode", cfg.IsMaintenanceMode))
		}
		if w.onUpdate != nil {
			w.onUpdate(cfg)
		}
	})
	if err != nil {
		w.log.Error("site configuration subscription failed", logger.Error(err))
		return nil, err
	}

	w.cancel = cancel
	return w, nil
}

// Current returns the latest known configuration.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops watching.
func (w *Watcher) Close() {
	if w.cancel != nil {
		w.cancel()
	}
}
