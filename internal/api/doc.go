// Package api hosts the HTTP search service. Notable routes:
//   - GET /healthz for liveness checks.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/search?q=...&limit=... to rank cached names, refreshing a stale
//     cache first.
//   - POST /v1/refresh to force a cache rebuild.
package api
