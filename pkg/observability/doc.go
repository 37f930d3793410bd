/*
Package observability provides tools for monitoring the flowspec engine.

Metrics turns orchestrator lifecycle hooks into Prometheus series, LogHooks
audits the same callbacks through slog, and Chain fans one hook set out to
several.
*/
package observability
