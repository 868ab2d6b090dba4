// Package middleware provides the uploader's observability hooks.
//
// This package includes:
//   - Prometheus metrics for widget events, sessions and HTTP requests
//   - OpenTelemetry tracing for HTTP requests and live session events
//
// # Prometheus Metrics
//
// Metrics implements widget.Recorder, so controllers report accepted files,
// rejected batches and deletions directly:
//
//	m := middleware.NewMetrics(middleware.WithNamespace("uploader"))
//	ctrl := widget.New(cfg, widget.Options{Loop: loop, Recorder: m})
//
//	r := chi.NewRouter()
//	r.Use(m.Handler)
//	r.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry
//
// Trace wraps HTTP handlers in server spans. StartEvent opens a span for
// one live session event:
//
//	ctx, span := middleware.StartEvent(ctx, sessionID, "click", widgetID)
//	defer span.End()
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it in
// main() before starting the server.
package middleware
