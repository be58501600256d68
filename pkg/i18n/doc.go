// Package i18n provides the per-language text bundle type used by server
// collections (plans, notifications) and the localized error message table.
//
// Translation content itself lives in the document store and in YAML message
// tables; this package only resolves which variant to show.
package i18n
