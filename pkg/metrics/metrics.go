// Package metrics holds the Prometheus collectors shared by the pipeline and
// the HTTP layer.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder groups the collectors the pipeline reports into.
type Recorder struct {
	registry         *prometheus.Registry
	stageDuration    *prometheus.HistogramVec
	requests         *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	componentHealth  *prometheus.GaugeVec
}

var (
	defaultRecorder *Recorder
	once            sync.Once
)

// Default returns the process-wide recorder registered on its own registry.
func Default() *Recorder {
	once.Do(func() {
		defaultRecorder = New(prometheus.NewRegistry())
	})
	return defaultRecorder
}

// New creates a recorder and registers its collectors on reg.
func New(reg *prometheus.Registry) *Recorder {
	r := &Recorder{
		registry: reg,
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kgpgpt",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each orchestration stage.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kgpgpt",
			Name:      "queries_total",
			Help:      "Queries processed, by code path and outcome.",
		}, []string{"path", "outcome"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kgpgpt",
			Name:      "search_provider_failures_total",
			Help:      "Web search provider calls that failed or timed out.",
		}, []string{"engine"}),
		componentHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kgpgpt",
			Name:      "component_healthy",
			Help:      "1 when the component passed its last health probe.",
		}, []string{"component"}),
	}
	reg.MustRegister(r.stageDuration, r.requests, r.providerFailures, r.componentHealth)
	return r
}

// Registry exposes the registry for the /metrics handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// CountQuery records a finished orchestration.
func (r *Recorder) CountQuery(simple bool, err error) {
	if r == nil {
		return
	}
	path := "full"
	if simple {
		path = "simple"
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.requests.WithLabelValues(path, outcome).Inc()
}

// ProviderFailed counts one failed provider call.
func (r *Recorder) ProviderFailed(engine string) {
	if r == nil {
		return
	}
	r.providerFailures.WithLabelValues(engine).Inc()
}

// SetHealth publishes the last probe result of a component.
func (r *Recorder) SetHealth(component string, healthy bool) {
	if r == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1
	}
	r.componentHealth.WithLabelValues(component).Set(v)
}
