// Package feed serves the current dataset to the presentation layer.
//
// Endpoints:
//   - GET /events   current dataset as JSON, optionally filtered by
//     category, month or source
//   - GET /ws       WebSocket; sends the current dataset on connect and
//     every replaced dataset afterwards
//   - GET /health   component status
//   - GET /metrics  Prometheus exposition
package feed
