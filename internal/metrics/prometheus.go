// Package metrics exposes transition, API and device-state metrics in the
// Prometheus format.
package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry *Registry
)

// Modes reported by the wificonf_mode gauge.
var Modes = []string{"access_point", "station", "disabled"}

// Registry holds all daemon metrics.
type Registry struct {
	gatherer prometheus.Gatherer

	// Transitions
	Transitions        *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
	StepFailures       *prometheus.CounterVec

	// Device state
	Mode          *prometheus.GaugeVec
	SavedNetworks prometheus.Gauge
	ProbeErrors   prometheus.Counter

	// API
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = NewRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return registry
}

// NewRegistry registers every metric with reg. Tests pass a fresh
// prometheus.NewRegistry() for both arguments.
func NewRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Registry {
	factory := promauto.With(reg)
	r := &Registry{gatherer: gatherer}

	r.Transitions = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "wificonf_transitions_total",
		Help: "Mode transitions by operation and outcome",
	}, []string{"operation", "outcome"})

	r.TransitionDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wificonf_transition_duration_seconds",
		Help:    "Wall time of mode transitions",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"operation"})

	r.StepFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "wificonf_step_failures_total",
		Help: "Failed pipeline steps, including ones tolerated by the failure policy",
	}, []string{"step"})

	r.Mode = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wificonf_mode",
		Help: "1 for the mode the managed interface was last observed in",
	}, []string{"mode"})

	r.SavedNetworks = factory.NewGauge(prometheus.GaugeOpts{
		Name: "wificonf_saved_networks",
		Help: "Number of networks in the credential store",
	})

	r.ProbeErrors = factory.NewCounter(prometheus.CounterOpts{
		Name: "wificonf_probe_errors_total",
		Help: "Interface probes that failed",
	})

	r.APIRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "wificonf_api_requests_total",
		Help: "Total API requests",
	}, []string{"method", "path", "status"})

	r.APILatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wificonf_api_request_duration_seconds",
		Help:    "API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	return r
}

// RecordTransition records the outcome of one operation.
func (r *Registry) RecordTransition(operation, outcome string, seconds float64) {
	r.Transitions.WithLabelValues(operation, outcome).Inc()
	r.TransitionDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordStepFailure counts a failed pipeline step.
func (r *Registry) RecordStepFailure(step string) {
	r.StepFailures.WithLabelValues(step).Inc()
}

// SetMode marks mode as current and clears the others.
func (r *Registry) SetMode(mode string) {
	for _, m := range Modes {
		v := 0.0
		if m == mode {
			v = 1
		}
		r.Mode.WithLabelValues(m).Set(v)
	}
}

// SetSavedNetworks updates the credential store size.
func (r *Registry) SetSavedNetworks(n int) {
	r.SavedNetworks.Set(float64(n))
}

// RecordAPIRequest records an API request.
func (r *Registry) RecordAPIRequest(method, path string, status int, duration float64) {
	r.APIRequests.WithLabelValues(method, path, statusString(status)).Inc()
	r.APILatency.WithLabelValues(method, path).Observe(duration)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// statusString converts an HTTP status code to string.
func statusString(status int) string {
	return fmt.Sprintf("%d", status)
}
