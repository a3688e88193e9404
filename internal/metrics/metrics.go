// Package metrics exposes Prometheus instrumentation for the discovery pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "leads"

// Recorder owns the pipeline collectors. A nil *Recorder records nothing.
type Recorder struct {
	namespace string
	registry  *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration prometheus.Histogram
	companies       prometheus.Counter
	patterns        *prometheus.CounterVec
	contacts        prometheus.Counter
	emails          prometheus.Counter
	warnings        *prometheus.CounterVec
	inFlight        prometheus.Gauge
}

// Option customises a Recorder.
type Option func(*Recorder)

// WithNamespace overrides the metric namespace.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithRegistry registers collectors on registry instead of a private one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// New builds a recorder and registers its collectors.
func New(opts ...Option) *Recorder {
	r := &Recorder{namespace: defaultNamespace, registry: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(r)
	}

	auto := promauto.With(r.registry)
	r.requests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "discovery",
		Name:      "requests_total",
		Help:      "Discovery requests by final status",
	}, []string{"status"})
	r.requestDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "discovery",
		Name:      "request_duration_seconds",
		Help:      "Wall time of a discovery request",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
	r.companies = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "discovery",
		Name:      "companies_found_total",
		Help:      "Qualifying companies announced",
	})
	r.patterns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "discovery",
		Name:      "patterns_inferred_total",
		Help:      "Email patterns computed, by source",
	}, []string{"source"})
	r.contacts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "discovery",
		Name:      "contacts_found_total",
		Help:      "Contacts announced",
	})
	r.emails = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "discovery",
		Name:      "emails_generated_total",
		Help:      "Candidate emails attached to contacts",
	})
	r.warnings = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "discovery",
		Name:      "warnings_total",
		Help:      "Non-fatal anomalies by pipeline stage",
	}, []string{"stage"})
	r.inFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Subsystem: "discovery",
		Name:      "requests_in_flight",
		Help:      "Discovery requests currently running",
	})
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RequestStarted marks a request as in flight.
func (r *Recorder) RequestStarted() {
	if r == nil {
		return
	}
	r.inFlight.Inc()
}

// RequestFinished records the outcome of a request started at start.
func (r *Recorder) RequestFinished(status string, start time.Time) {
	if r == nil {
		return
	}
	r.inFlight.Dec()
	r.requests.WithLabelValues(status).Inc()
	r.requestDuration.Observe(time.Since(start).Seconds())
}

func (r *Recorder) CompanyFound() {
	if r == nil {
		return
	}
	r.companies.Inc()
}

func (r *Recorder) PatternInferred(source string) {
	if r == nil {
		return
	}
	r.patterns.WithLabelValues(source).Inc()
}

// ContactFound counts one contact and the emails attached to it.
func (r *Recorder) ContactFound(emails int) {
	if r == nil {
		return
	}
	r.contacts.Inc()
	r.emails.Add(float64(emails))
}

func (r *Recorder) Warning(stage string) {
	if r == nil {
		return
	}
	r.warnings.WithLabelValues(stage).Inc()
}
