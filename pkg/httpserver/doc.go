// Package httpserver wraps net/http with graceful shutdown, env-driven
// timeouts and health probes.
//
// Run blocks until the context is canceled or an interrupt/TERM signal
// arrives, then drains in-flight requests within the configured shutdown
// deadline. Listen failures are wrapped with ErrStart, shutdown failures
// with ErrShutdown, so callers can distinguish them with errors.Is.
package httpserver
