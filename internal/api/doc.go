// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/runs to trigger a sync run.
//   - GET /v1/runs and /v1/runs/{run_id} for run history via the RunStore
//     interface.
package api
