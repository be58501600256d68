// Package gate enforces navigation rules at the HTTP boundary. It maps each
// request path to the view it asks for, resolves the effective view from the
// live auth state and site configuration, and redirects when the two
// disagree. Resolution runs on every request so configuration flips take
// effect on the next navigation.
package gate
