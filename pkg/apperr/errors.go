package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated blocks actions that require a signed-in identity
	// before any I/O happens.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrTimeout indicates the external collaborator did not respond within
	// the allowed bound. Terminal for the attempt; the user may retry the
	// whole flow.
	ErrTimeout = errors.New("operation timed out")
)

// ValidationError reports bad user input. It is recovered locally and shown
// inline; it never reaches the document store or the identity provider.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigError reports missing or malformed deployment configuration, such as
// a payment client key that does not match the required format. Terminal and
// never silently retried.
type ConfigError struct {
	Reason string
}

func (e ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// RemoteError wraps a document-store or identity-provider failure. Code is
// the provider's machine-readable error code, used to pick a localized
// user-facing message.
type RemoteError struct {
	Code string
	Err  error
}

func (e RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote error %s: %v", e.Code, e.Err)
	}
	return "remote error " + e.Code
}

func (e RemoteError) Unwrap() error {
	return e.Err
}

// FeedError wraps a live subscription failure. Non-fatal: consumers keep the
// last-known-good state and report the error through a side channel.
type FeedError struct {
	Err error
}

func (e FeedError) Error() string {
	return fmt.Sprintf("feed error: %v", e.Err)
}

func (e FeedError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce ConfigError
	return errors.As(err, &ce)
}
