// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Sync run outcomes and durations
//   - Per-source fetch failures and dropped records
//   - Cache hits, misses and durable write failures
//   - Rate limiter wait time per source
package metrics
