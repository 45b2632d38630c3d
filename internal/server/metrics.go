package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "forge_registry"

// Metrics holds the Prometheus collectors of one server. Each server gets
// its own registry so tests can run several side by side.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	Reloads      prometheus.Counter
	ReloadErrors prometheus.Counter
	LastReload   prometheus.Gauge

	Modules          prometheus.Gauge
	ModuleVersions   prometheus.Gauge
	Components       prometheus.Gauge
	ValidationIssues *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "requests_in_flight",
				Help:      "Number of API requests currently being served",
			},
		),
		Reloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "snapshot_reloads_total",
				Help:      "Total number of successful registry reloads",
			},
		),
		ReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "snapshot_reload_errors_total",
				Help:      "Total number of failed registry reloads",
			},
		),
		LastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "snapshot_last_reload_timestamp_seconds",
				Help:      "Unix time of the last successful registry load",
			},
		),
		Modules: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "modules",
				Help:      "Distinct modules in the current snapshot",
			},
		),
		ModuleVersions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "module_versions",
				Help:      "Module versions in the current snapshot",
			},
		),
		Components: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "components",
				Help:      "Component versions in the current snapshot",
			},
		),
		ValidationIssues: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "validation_issues",
				Help:      "Validation issues in the current snapshot by severity",
			},
			[]string{"severity"},
		),
	}
}
