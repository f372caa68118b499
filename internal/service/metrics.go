package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joeblew999/plat-pod/internal/validate"
)

// Metrics are the prometheus collectors of the pod services.
type Metrics struct {
	registry *prometheus.Registry

	Layouts          prometheus.Counter
	LayoutFailures   prometheus.Counter
	ValidationRuns   prometheus.Counter
	ValidationErrors *prometheus.CounterVec
	FieldRequests    prometheus.Counter
	QueueSize        prometheus.Gauge
}

// NewMetrics creates the collectors on a registry of their own.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Layouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pod_layouts_total",
			Help: "Page layouts computed",
		}),
		LayoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pod_layout_failures_total",
			Help: "Page layouts that failed",
		}),
		ValidationRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pod_validation_runs_total",
			Help: "Catalog validation runs",
		}),
		ValidationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pod_validation_errors_total",
			Help: "Catalog validation errors surfaced, by kind and severity",
		}, []string{"kind", "severity"}),
		FieldRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pod_field_check_requests_total",
			Help: "Extent layer field list requests dispatched",
		}),
		QueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pod_queue_products",
			Help: "Products in the export queue",
		}),
	}
	m.registry.MustRegister(
		m.Layouts, m.LayoutFailures, m.ValidationRuns,
		m.ValidationErrors, m.FieldRequests, m.QueueSize,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collectors in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) validationError(e validate.Error) {
	if m == nil {
		return
	}
	m.ValidationErrors.WithLabelValues(string(e.Kind), e.Severity.String()).Inc()
}

func (m *Metrics) layout(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.LayoutFailures.Inc()
		return
	}
	m.Layouts.Inc()
}
