// Package api hosts the HTTP server, middleware, and HTML handlers.
// Notable routes:
//   - GET / for the submission form, POST /urls to add a site.
//   - GET /urls and GET /urls/{id} for listings and details.
//   - POST /urls/{id}/checks to run a page check.
//   - GET /healthz and /readyz for probes, GET /metrics for Prometheus.
package api
