// Package cache implements the two-tier payload cache used by source clients.
//
// Lookups check an in-memory map first and fall back to a durable tier
// (SQLite or PostgreSQL) on miss. Entries carry their own TTL and expire
// lazily when read; there is no background sweep. Durable write failures
// are logged and swallowed since the cache never decides correctness.
//
// Durable rows hold the JSON envelope {"data": ..., "timestamp": ..., "ttl": ...}
// keyed by "<requestURL>_<serializedOptions>".
package cache
