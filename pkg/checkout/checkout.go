package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle of a single checkout attempt. Exactly one terminal
// state is reached per attempt.
type State string

const (
	StateIdle           State = "idle"
	StateCreating       State = "creating"
	StateAwaitingResult State = "awaiting_result"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
	StateTimedOut       State = "timed_out"
	StateConfigError    State = "config_error"
)

const (
	// publishableKeyPrefix is the mandatory prefix of a browser-safe payment
	// key. Anything else is a deployment mistake, caught before any I/O.
	publishableKeyPrefix = "pk_"

	// sessionIDPlaceholder is substituted by the payment provider when it
	// builds the post-payment return URL. It must survive URL assembly
	// verbatim.
	sessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

	confirmPath = "/billing/confirm"
	billingPath = "/billing"
)

// Config holds the payment-side settings of the broker.
type Config struct {
	// PublishableKey is the browser-safe payment client key. Secret keys
	// never appear here.
	PublishableKey string `env:"PAYMENT_PUBLISHABLE_KEY,required"`

	// ResultTimeout bounds the wait for the server extension to append a
	// result to the intent document.
	ResultTimeout time.Duration `env:"CHECKOUT_RESULT_TIMEOUT" envDefault:"15s"`

	// Origin is the public origin of this deployment, used to build the
	// success and cancel URLs.
	Origin string `env:"APP_ORIGIN" envDefault:"http://localhost:8080"`
}

// Validate checks the key format. A wrong prefix means a secret key or
// garbage ended up in the deployment config.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.PublishableKey, publishableKeyPrefix) {
		return fmt.Errorf("payment publishable key must start with %q", publishableKeyPrefix)
	}
	if c.ResultTimeout <= 0 {
		return fmt.Errorf("checkout result timeout must be positive, got %s", c.ResultTimeout)
	}
	return nil
}

// Redirector hands the settled session over to the payment provider's
// client-side flow. The broker never talks to the provider directly.
type Redirector interface {
	RedirectToCheckout(ctx context.Context, sessionID string) error
}

// RedirectorFunc adapts a function to the Redirector interface.
type RedirectorFunc func(ctx context.Context, sessionID string) error

func (f RedirectorFunc) RedirectToCheckout(ctx context.Context, sessionID string) error {
	return f(ctx, sessionID)
}

// SessionCollection returns the per-customer collection that holds checkout
// intent documents.
func SessionCollection(userID string) string {
	return "customers/" + userID + "/checkout_sessions"
}

// SuccessURLTemplate builds the post-payment return URL with the provider
// placeholder left intact.
func SuccessURLTemplate(origin string) string {
	return strings.TrimSuffix(origin, "/") + confirmPath + "?session_id=" + sessionIDPlaceholder
}

// CancelURL resolves where the provider sends the user on abandonment.
// A currentPage inside the deployment origin is preferred so the user lands
// back where they started.
func CancelURL(origin, currentPage string) string {
	base := strings.TrimSuffix(origin, "/")
	if currentPage != "" && strings.HasPrefix(currentPage, base) {
		return currentPage
	}
	return base + billingPath
}
