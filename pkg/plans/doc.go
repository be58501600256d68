// Package plans reads the subscription plan catalog: active plans only,
// ordered by token volume ascending, with per-language text bundles.
//
// The store exposes create/subscribe rather than a query API, so one-shot
// loads are first-snapshot subscriptions. A redis-backed CachedSource sits
// in front for read-hot deployments.
package plans
