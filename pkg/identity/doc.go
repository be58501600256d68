// Package identity wraps the external identity provider and owns first-login
// provisioning.
//
// The provider surface is deliberately minimal: sign-in, sign-up, sign-out,
// current-user change notifications. Everything else (validation, the
// profile/billing dual write, error mapping) happens in Service so the
// provider stays swappable.
package identity
