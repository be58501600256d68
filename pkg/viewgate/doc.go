// Package viewgate decides which screen a given combination of auth state,
// site configuration and requested view is allowed to render.
package viewgate
