package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	uerrors "github.com/codz-dev/uploader/internal/errors"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "uploader").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "uploader",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the uploader's Prometheus metrics. It implements
// widget.Recorder.
type Metrics struct {
	filesAccepted    prometheus.Counter
	batchesRejected  *prometheus.CounterVec
	deletions        *prometheus.CounterVec
	deletionDuration prometheus.Histogram
	submissions      *prometheus.CounterVec
	eventsTotal      *prometheus.CounterVec
	eventDuration    *prometheus.HistogramVec
	eventErrors      *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	wsErrors         *prometheus.CounterVec
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// NewMetrics registers the uploader metrics.
//
// Metrics collected:
//   - uploader_files_accepted_total: files committed to widgets
//   - uploader_batches_rejected_total: rejected batches by reason
//   - uploader_deletions_total: deletion requests by outcome
//   - uploader_deletion_duration_seconds: deletion request duration
//   - uploader_submissions_total: form submissions by outcome
//   - uploader_events_total: live session events by kind and status
//   - uploader_event_duration_seconds: event handling duration
//   - uploader_event_errors_total: event errors by kind and category
//   - uploader_active_sessions: open live sessions
//   - uploader_websocket_errors_total: WebSocket errors by type
//   - uploader_http_requests_total: HTTP requests by route and status
//   - uploader_http_request_duration_seconds: HTTP request duration
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}
	}
	histogram := func(name, help string) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}
	}

	return &Metrics{
		filesAccepted: factory.NewCounter(counter("files_accepted_total",
			"Total number of files committed to widgets")),
		batchesRejected: factory.NewCounterVec(counter("batches_rejected_total",
			"Total number of rejected file batches"), []string{"reason"}),
		deletions: factory.NewCounterVec(counter("deletions_total",
			"Total number of deletion requests"), []string{"outcome"}),
		deletionDuration: factory.NewHistogram(histogram("deletion_duration_seconds",
			"Deletion request duration in seconds")),
		submissions: factory.NewCounterVec(counter("submissions_total",
			"Total number of form submissions"), []string{"outcome"}),
		eventsTotal: factory.NewCounterVec(counter("events_total",
			"Total number of live session events processed"), []string{"kind", "status"}),
		eventDuration: factory.NewHistogramVec(histogram("event_duration_seconds",
			"Event processing duration in seconds"), []string{"kind"}),
		eventErrors: factory.NewCounterVec(counter("event_errors_total",
			"Total number of event processing errors"), []string{"kind", "error_type"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of active WebSocket sessions",
			ConstLabels: config.ConstLabels,
		}),
		wsErrors: factory.NewCounterVec(counter("websocket_errors_total",
			"Total WebSocket errors by type"), []string{"type"}),
		requestsTotal: factory.NewCounterVec(counter("http_requests_total",
			"Total HTTP requests by route and status"), []string{"route", "status"}),
		requestDuration: factory.NewHistogramVec(histogram("http_request_duration_seconds",
			"HTTP request duration in seconds"), []string{"route"}),
	}
}

// FilesAccepted records n files committed to a widget.
func (m *Metrics) FilesAccepted(n int) {
	m.filesAccepted.Add(float64(n))
}

// BatchRejected records a rejected batch.
func (m *Metrics) BatchRejected(reason string) {
	m.batchesRejected.WithLabelValues(reason).Inc()
}

// DeletionFinished records a completed deletion request.
func (m *Metrics) DeletionFinished(outcome string, d time.Duration) {
	m.deletions.WithLabelValues(outcome).Inc()
	m.deletionDuration.Observe(d.Seconds())
}

// Submission records a form submission outcome: "blocked", "forwarded"
// or "failed".
func (m *Metrics) Submission(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

// Event records one handled live session event.
func (m *Metrics) Event(kind string, d time.Duration, err error) {
	m.eventDuration.WithLabelValues(kind).Observe(d.Seconds())
	status := "success"
	if err != nil {
		status = "error"
		m.eventErrors.WithLabelValues(kind, categorizeError(err)).Inc()
	}
	m.eventsTotal.WithLabelValues(kind, status).Inc()
}

// SessionOpened records a new live session.
func (m *Metrics) SessionOpened() {
	m.activeSessions.Inc()
}

// SessionClosed records a closed live session.
func (m *Metrics) SessionClosed() {
	m.activeSessions.Dec()
}

// WebSocketError records a WebSocket error.
func (m *Metrics) WebSocketError(errorType string) {
	m.wsErrors.WithLabelValues(errorType).Inc()
}

// Handler is chi middleware recording request counts and durations by
// route pattern.
func (m *Metrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}

// categorizeError returns a low-cardinality label for err.
func categorizeError(err error) string {
	var coded *uerrors.Error
	if errors.As(err, &coded) {
		return string(coded.Category)
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "rate limit"):
		return "rate_limit"
	case strings.Contains(errStr, "not found"):
		return "not_found"
	case strings.Contains(errStr, "websocket"):
		return "websocket"
	default:
		return "internal"
	}
}
