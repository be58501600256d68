package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/tokengate/pkg/apperr"
	"github.com/dmitrymomot/tokengate/pkg/checkout"
	"github.com/dmitrymomot/tokengate/pkg/identity"
	"github.com/dmitrymomot/tokengate/pkg/logger"
	"github.com/dmitrymomot/tokengate/pkg/plans"
)

// Config holds the billing module settings.
type Config struct {
	// CheckoutURLTemplate builds the provider-hosted payment page URL from
	// a settled session id.
	CheckoutURLTemplate string `env:"CHECKOUT_URL_TEMPLATE" envDefault:"https://checkout.example.com/session/%s"`
}

// Service exposes the plan catalog and the checkout flow over HTTP.
type Service struct {
	cfg      Config
	catalog  plans.Source
	identity *identity.Service
	broker   *checkout.Broker
	errors   *apperr.Table
	log      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the request logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithErrorTable replaces the default localized error message table.
func WithErrorTable(table *apperr.Table) Option {
	return func(s *Service) {
		if table != nil {
			s.errors = table
		}
	}
}

// NewService wires the billing endpoints. Panics on nil dependencies.
func NewService(cfg Config, catalog plans.Source, ident *identity.Service, broker *checkout.Broker, opts ...Option) *Service {
	if catalog == nil {
		panic("billing: nil plan source")
	}
	if ident == nil {
		panic("billing: nil identity service")
	}
	if broker == nil {
		panic("billing: nil checkout broker")
	}
	s := &Service{
		cfg:      cfg,
		catalog:  catalog,
		identity: ident,
		broker:   broker,
		errors:   apperr.DefaultTable(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the module router.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/plans", s.listPlans)
	r.Post("/checkout", s.startCheckout)
	r.Get("/confirm", s.confirm)
	return r
}

// planPayload is a Plan with all text resolved for one language.
type planPayload struct {
	ID        string   `json:"id"`
	PriceRef  string   `json:"priceRef"`
	Tokens    int64    `json:"tokens"`
	Title     string   `json:"title"`
	Price     string   `json:"price"`
	Features  []string `json:"features"`
	IsPopular bool     `json:"isPopular"`
}

func (s *Service) listPlans(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)

	items, err := s.catalog.Load(r.Context())
	if err != nil {
		s.log.ErrorContext(r.Context(), "plan catalog load failed", logger.Error(err))
		s.writeError(w, r, err)
		return
	}

	payload := make([]planPayload, 0, len(items))
	for _, p := range items {
		payload = append(payload, planPayload{
			ID:        p.ID,
			PriceRef:  p.PriceRef,
			Tokens:    p.Tokens,
			Title:     p.Title.Resolve(lang),
			Price:     p.Price.Resolve(lang),
			Features:  p.FeaturesFor(lang),
			IsPopular: p.IsPopular,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Service) startCheckout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, apperr.ValidationError{Field: "form", Message: "malformed form body"})
		return
	}
	priceRef := r.PostFormValue("price_ref")
	user := s.identity.CurrentUser()

	sessionID, err := s.broker.Initiate(r.Context(), user, priceRef, r.Referer())
	if err != nil {
		s.log.WarnContext(r.Context(), "checkout attempt failed",
			logger.Error(err), logger.PlanPriceRef(priceRef), logger.UserID(userID(user)))
		s.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf(s.cfg.CheckoutURLTemplate, sessionID), http.StatusSeeOther)
}

func (s *Service) confirm(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		s.writeError(w, r, apperr.ValidationError{Field: "session_id", Message: "session_id is required"})
		return
	}

	s.log.InfoContext(r.Context(), "checkout confirmed", slog.String("session_id", sessionID))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "complete",
		"sessionId":   sessionID,
		"confirmedAt": time.Now().UTC(),
	})
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, statusFor(err), map[string]string{
		"error": s.errors.Localize(err, requestLanguage(r)),
	})
}

func statusFor(err error) int {
	var ve apperr.ValidationError
	var de checkout.DeclinedError
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.As(err, &de):
		return http.StatusPaymentRequired
	case apperr.IsConfig(err):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLanguage picks the response language from the lang query parameter
// or the first Accept-Language tag.
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

func userID(u *identity.User) any {
	if u == nil {
		return nil
	}
	return u.ID
}
