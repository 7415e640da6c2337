// Package server exposes the calendar service over HTTP.
//
// # Key Components
//
// ServerContext holds what every transport shares: the calendar service,
// the metrics recorder, the audit logger and the shutdown state.
//
// API mounts one POST endpoint per calendar operation under /api/notion/.
// Bodies are JSON and carry the caller's Notion token. Validation failures
// answer 400 and store failures 500, both as {"error": "..."}.
//
// HTTPServer wraps the API and the health probes in the middleware chain:
//   - otelhttp server spans
//   - request ids (X-Request-ID)
//   - panic recovery
//   - access log and HTTP metrics
//   - CORS
//   - optional per-client rate limiting
//
// MetricsServer serves Prometheus metrics on a separate port.
package server
