// Package siteconfig watches the server-controlled site configuration
// document (maintenance mode, analytics provider ids) and hosts the
// idempotent tracking-snippet injector.
package siteconfig
