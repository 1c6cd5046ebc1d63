// Package observability provides the structured JSON logger, the Prometheus
// metric set, and the optional OpenTelemetry exporters for the authorization
// engine. Consumers pass their own prometheus.Registry; the engine itself
// exposes no HTTP surface.
package observability
