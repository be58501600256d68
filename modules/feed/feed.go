package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/tokengate/pkg/logger"
	"github.com/dmitrymomot/tokengate/pkg/notifications"
)

// Config holds the feed module settings.
type Config struct {
	// Heartbeat is the interval between SSE comment frames that keep idle
	// connections from being reaped by proxies.
	Heartbeat time.Duration `env:"FEED_HEARTBEAT" envDefault:"15s"`
}

// Service streams the system notification feed over server-sent events.
// Each connection holds exactly one store subscription, torn down with the
// request.
type Service struct {
	cfg  Config
	feed *notifications.Feed
	log  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the stream logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService wires the notification stream endpoint.
func NewService(cfg Config, f *notifications.Feed, opts ...Option) *Service {
	if f == nil {
		panic("feed: nil notification feed")
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 15 * time.Second
	}
	s := &Service{cfg: cfg, feed: f, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the module router.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/notifications", s.stream)
	return r
}

// notificationPayload is a Record resolved for one language.
type notificationPayload struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func (s *Service) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lang := requestLanguage(r)

	// Buffered by one: a consumer that falls behind gets only the newest
	// list, since every delivery is the complete feed state.
	updates := make(chan []notifications.Record, 1)
	sub, err := s.feed.Subscribe(r.Context(), func(items []notifications.Record) {
		for {
			select {
			case updates <- items:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	if err != nil {
		s.log.ErrorContext(r.Context(), "notification subscription failed", logger.Error(err))
		http.Error(w, "feed unavailable", http.StatusServiceUnavailable)
		return
	}
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(s.cfg.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case items := <-updates:
			if err := writeEvent(w, items, lang); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, items []notifications.Record, lang string) error {
	payload := make([]notificationPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, notificationPayload{
			ID:        item.ID,
			Type:      string(item.Type),
			Title:     item.Title.Resolve(lang),
			Message:   item.Message.Resolve(lang),
			CreatedAt: item.CreatedAt,
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: notifications\ndata: %s\n\n", data)
	return err
}

func requestLanguage(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	accept := r.Header.Get("Accept-Language")
	if accept == "" {
		return ""
	}
	if i := strings.IndexAny(accept, ",;"); i >= 0 {
		accept = accept[:i]
	}
	return strings.TrimSpace(accept)
}
