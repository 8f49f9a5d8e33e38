// Package api hosts the operator HTTP surface that runs beside a fetch run:
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/run for the live outcome tally of the current run.
package api
