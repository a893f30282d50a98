package metrics

import (
	"net/http"

	"github.com/mikey/phish-detect/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline holds the Prometheus metrics of the processing pipeline. It
// implements core.Recorder.
//
// Metrics:
//   - phish_detect_nodes_submitted_total
//   - phish_detect_nodes_skipped_total
//   - phish_detect_transitions_total{state}
//   - phish_detect_classification_duration_seconds{outcome}
//   - phish_detect_pipelines_in_flight
type Pipeline struct {
	registry *prometheus.Registry

	SubmittedTotal         prometheus.Counter
	SkippedTotal           prometheus.Counter
	TransitionsTotal       *prometheus.CounterVec
	ClassificationDuration *prometheus.HistogramVec
	PipelinesInFlight      prometheus.Gauge
}

// NewPipeline registers the pipeline metrics on a fresh registry, together
// with the Go and process collectors
func NewPipeline() *Pipeline {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Pipeline{
		registry: reg,
		SubmittedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "phish_detect_nodes_submitted_total",
			Help: "Total number of candidate nodes submitted to the pipeline",
		}),
		SkippedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "phish_detect_nodes_skipped_total",
			Help: "Total number of submissions skipped because the message was already claimed",
		}),
		TransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "phish_detect_transitions_total",
			Help: "Total number of pipeline state transitions",
		}, []string{"state"}),
		ClassificationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "phish_detect_classification_duration_seconds",
			Help:    "Duration of classification round-trips in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		PipelinesInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "phish_detect_pipelines_in_flight",
			Help: "Number of pipelines currently waiting on classification or the blocklist",
		}),
	}
}

// Registry returns the registry holding the metrics
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (p *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Pipeline) Submitted() {
	p.SubmittedTotal.Inc()
}

func (p *Pipeline) Skipped() {
	p.SkippedTotal.Inc()
}

func (p *Pipeline) Transition(state core.State) {
	p.TransitionsTotal.WithLabelValues(string(state)).Inc()
}

func (p *Pipeline) ClassificationLatency(seconds float64, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	p.ClassificationDuration.WithLabelValues(outcome).Observe(seconds)
}

func (p *Pipeline) InFlight(delta int) {
	p.PipelinesInFlight.Add(float64(delta))
}
