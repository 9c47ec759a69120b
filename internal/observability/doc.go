// Package observability provides logging, metrics, and tracing for edgegate.
//
// Logging is exposed through the Logger interface backed by zap. Metrics
// live in a dedicated Prometheus registry that is served on the ops
// listener. Tracing uses the OpenTelemetry SDK with an optional OTLP gRPC
// exporter.
//
// Request-scoped identifiers (request ID, trace ID, span ID) travel in the
// request context and are attached to log entries by Logger.WithContext.
package observability
