// Package api hosts the HTTP server, middleware, and REST handlers for
// running and inspecting crawls. Notable routes:
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/crawls to run a crawl synchronously and persist it.
//   - GET /v1/crawls?url=...&n=... to read a stored crawl.
package api
