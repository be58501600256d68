package siteconfig

import (
	"fmt"
	"regexp"
	"sync"
)

// Marker ids for the built-in tracking providers. The id doubles as the
// script element id in the rendered page, which is what makes re-injection
// detectable.
const (
	MarkerGoogleAnalytics = "ga-tracking-snippet"
	MarkerYandexMetrika   = "ym-tracking-snippet"
)

// Provider ids come from site configuration; only a conservative charset is
// ever interpolated into markup.
var safeProviderID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Snippet is one fire-and-forget tracking script, keyed by marker id.
type Snippet struct {
	MarkerID string
	HTML     string
}

// Injector emits tracking snippets at most once per marker id. Injection is
// fire-and-forget: a failing emit is not retried, and a repeated Inject for
// the same marker is a no-op.
type Injector struct {
	mu       sync.Mutex
	injected map[string]struct{}
	emit     func(Snippet)
}

// NewInjector creates an injector that hands snippets to emit.
func NewInjector(emit func(Snippet)) *Injector {
	if emit == nil {
		panic("siteconfig: emit function is required")
	}
	return &Injector{
		injected: make(map[string]struct{}),
		emit:     emit,
	}
}

// Inject emits the snippet unless its marker id was already injected.
// Returns true when the snippet was actually emitted.
func (i *Injector) Inject(s Snippet) bool {
	if s.MarkerID == "" {
		return false
	}

	i.mu.Lock()
	if _, done := i.injected[s.MarkerID]; done {
		i.mu.Unlock()
		return false
	}
	i.injected[s.MarkerID] = struct{}{}
	i.mu.Unlock()

	i.emit(s)
	return true
}

// Apply injects the snippets for every provider configured with an id.
// Safe to call on every config update; already-injected providers are
// skipped.
func (i *Injector) Apply(cfg Config) {
	if id := cfg.GoogleAnalyticsID; id != "" && safeProviderID.MatchString(id) {
		i.Inject(Snippet{
			MarkerID: MarkerGoogleAnalytics,
			HTML: fmt.Sprintf(
				`<script id=%q async src="https://www.googletagmanager.com/gtag/js?id=%s"></script>`,
				MarkerGoogleAnalytics, id),
		})
	}
	if id := cfg.YandexMetrikaID; id != "" && safeProviderID.MatchString(id) {
		i.Inject(Snippet{
			MarkerID: MarkerYandexMetrika,
			HTML: fmt.Sprintf(
				`<script id=%q src="https://mc.yandex.ru/metrika/tag.js" data-counter="%s"></script>`,
				MarkerYandexMetrika, id),
		})
	}
}
