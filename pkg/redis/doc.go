// Package redis provides redis connection management for the plan catalog
// cache. Configuration is environment-driven and connection attempts are
// retried to ride out managed-redis restarts.
package redis
