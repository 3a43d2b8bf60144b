// Package main hosts the page analyzer web service entrypoint.
//
// Architecture overview:
//   - HTTP: internal/api.Server serves the HTML pages (submission form, site list, site details) plus
//     /healthz, /readyz and /metrics. Handlers stay thin and call internal/analyzer.Service.
//   - Checks: Service.CheckURL waits on a per-host token bucket, fetches the stored URL with the Colly fetcher,
//     classifies the status code and extracts title/description/h1 with goquery when the status is 200. 5xx and
//     network failures write nothing and surface as a danger flash.
//   - Persistence: Postgres through pgxpool when a DSN is configured (migrations applied on start by default),
//     otherwise in-process maps that are lost on restart.
//   - Plumbing: Viper loads config from .env, an optional file and PAGE_ANALYZER_* variables; zap logs carry the
//     request id; Prometheus metrics cover requests and check outcomes; OpenTelemetry tracing is opt-in.
//
// Quick checklist:
//   - Required: SECRET_KEY (or PAGE_ANALYZER_SESSION_SECRET).
//   - Optional: DATABASE_URL, PORT, PAGE_ANALYZER_FETCH_TIMEOUT, PAGE_ANALYZER_RATELIMIT_RPS.
//   - Run locally: go run ./cmd/pageanalyzer -config config.yaml (or rely solely on env overrides).
package main
