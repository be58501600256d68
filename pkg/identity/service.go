package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"time"

	"github.com/dmitrymomot/tokengate/pkg/apperr"
	"github.com/dmitrymomot/tokengate/pkg/docstore"
	"github.com/dmitrymomot/tokengate/pkg/logger"
)

// Store collections provisioned at sign-up.
const (
	CollectionProfiles  = "users"
	CollectionCustomers = "customers"
)

const minPasswordLength = 6

// Service wraps the external identity provider with local validation and
// first-login provisioning. On sign-up it creates the user profile record
// and the billing-customer stub in one atomic batch: either both exist
// afterwards or neither does.
type Service struct {
	provider Provider
	channel  docstore.Channel
	log      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the service logger.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates an identity service. Panics on nil dependencies to
// fail fast during wiring.
func NewService(provider Provider, channel docstore.Channel, opts ...ServiceOption) *Service {
	if provider == nil {
		panic("identity: provider is required")
	}
	if channel == nil {
		panic("identity: document channel is required")
	}

	s := &Service{
		provider: provider,
		channel:  channel,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignIn validates input locally, then delegates to the provider.
// Validation failures never reach the provider.
func (s *Service) SignIn(ctx context.Context, email, password string) (*User, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, apperr.ValidationError{Field: "password", Message: "Password is required."}
	}

	user, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, mapProviderError(err)
	}
	return user, nil
}

// SignUp validates input, registers the identity, then provisions the
// profile record and billing-customer stub in one atomic batch. A batch
// failure rolls the session back by signing out, so the client never runs
// half-provisioned.
func (s *Service) SignUp(ctx context.Context, email, password, passwordConfirm string) (*User, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, apperr.ValidationError{Field: "password", Message: "Password must be at least 6 characters."}
	}
	if password != passwordConfirm {
		return nil, apperr.ValidationError{Field: "passwordConfirm", Message: "Passwords do not match."}
	}

	user, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, mapProviderError(err)
	}

	now := time.Now().UTC()
	err = s.channel.CreateBatch(ctx, []docstore.Write{
		{
			Collection: CollectionProfiles,
			ID:         user.ID,
			Data: map[string]any{
				"email":        user.Email,
				"role":         RoleUser,
				"status":       StatusActive,
				"tokenBalance": DefaultTokenBalance,
				"createdAt":    now,
			},
		},
		{
			Collection: CollectionCustomers,
			ID:         user.ID,
			Data: map[string]any{
				"email":     user.Email,
				"createdAt": now,
			},
		},
	})
	if err != nil {
		s.log.Error("sign-up provisioning failed, rolling back session",
			logger.UserID(user.ID), logger.Error(err))
		if signOutErr := s.provider.SignOut(ctx); signOutErr != nil && !errors.Is(signOutErr, ErrNotSignedIn) {
			s.log.Warn("rollback sign-out failed", logger.Error(signOutErr))
		}
		return nil, apperr.RemoteError{Code: "unavailable", Err: err}
	}

	user.Role = RoleUser
	user.Status = StatusActive
	user.TokenBalance = DefaultTokenBalance
	return user, nil
}

// SignOut delegates to the provider.
func (s *Service) SignOut(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		return mapProviderError(err)
	}
	return nil
}

// CurrentUser returns the signed-in user or nil.
func (s *Service) CurrentUser() *User {
	return s.provider.CurrentUser()
}

// OnChange proxies provider change notifications. Consumers holding
// identity-scoped subscriptions (the notification feed) tear down and
// re-subscribe from this callback.
func (s *Service) OnChange(fn func(*User)) CancelFunc {
	return s.provider.OnChange(fn)
}

func validateEmail(email string) error {
	if email == "" {
		return apperr.ValidationError{Field: "email", Message: "Email is required."}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.ValidationError{Field: "email", Message: "Invalid email address."}
	}
	return nil
}

func mapProviderError(err error) error {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return apperr.RemoteError{Code: "user-not-found", Err: err}
	case errors.Is(err, ErrWrongPassword):
		return apperr.RemoteError{Code: "wrong-password", Err: err}
	case errors.Is(err, ErrEmailAlreadyInUse):
		return apperr.RemoteError{Code: "email-already-in-use", Err: err}
	case errors.Is(err, ErrNotSignedIn):
		return apperr.ErrUnauthenticated
	default:
		return apperr.RemoteError{Code: "unavailable", Err: err}
	}
}
