// Package apperr defines the application error taxonomy and the localized
// message table that converts errors into user-facing text.
//
// Taxonomy:
//   - ValidationError: bad input, recovered locally, shown inline.
//   - ErrUnauthenticated: the action requires a signed-in identity; the check
//     happens before any I/O.
//   - ConfigError: deployment misconfiguration, terminal and actionable.
//   - RemoteError: document-store or identity-provider failure, mapped to a
//     localized message by provider code.
//   - ErrTimeout: the external collaborator did not answer within the bound.
//   - FeedError: live subscription failure; non-fatal, last good state kept.
//
// Nothing in this taxonomy is allowed to crash the application: every
// failure path converts to text via Table.Localize and returns control to an
// interactive state.
package apperr
