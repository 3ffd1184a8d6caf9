// Package api provides the per-source HTTP client for upstream event feeds.
//
// Each Client is bound to one source's base URL and optional bearer
// credential. A fetch consults the payload cache first; only a miss waits on
// the rate limiter and goes to the network. Non-2xx responses surface as
// *APIError and are never retried here: retries belong to the caller so
// that caching and rate limiting apply once per logical attempt.
//
// Request:
//
//	GET <base_url><endpoint>?year=2025
//	Accept: application/json
//	Authorization: Bearer <credential>   (when configured)
package api
