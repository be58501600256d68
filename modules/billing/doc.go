// Package billing serves the plan catalog and runs the checkout flow: plan
// listing with per-language text resolution, checkout initiation ending in a
// redirect to the provider-hosted payment page, and the post-payment
// confirmation endpoint that consumes the provider's session id.
package billing
