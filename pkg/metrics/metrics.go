// Package metrics exposes engine counters to Prometheus.
// All methods are safe on a nil *Metrics, which disables collection.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "golivegraph"

// Metrics holds the engine collectors.
type Metrics struct {
	registry *prometheus.Registry

	samplesAccepted   prometheus.Counter
	parseErrors       prometheus.Counter
	sampleRate        prometheus.Gauge
	streamState       prometheus.Gauge
	captureState      prometheus.Gauge
	sessionsFinalized prometheus.Counter
	exportFailures    prometheus.Counter
	renderTicks       prometheus.Counter
}

// New registers the collectors on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		samplesAccepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_accepted_total",
			Help:      "Samples decoded from complete frames",
		}),
		parseErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Frames discarded as malformed",
		}),
		sampleRate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sample_rate",
			Help:      "Accepted samples per second over the rate window",
		}),
		streamState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_state",
			Help:      "0 disconnected, 1 connecting, 2 connected",
		}),
		captureState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capture_state",
			Help:      "0 idle, 1 recording, 2 paused",
		}),
		sessionsFinalized: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finalized_total",
			Help:      "Recording sessions finalized",
		}),
		exportFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_failures_total",
			Help:      "Finalized sessions whose upload failed",
		}),
		renderTicks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_ticks_total",
			Help:      "Render scheduler ticks",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SamplesAccepted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.samplesAccepted.Add(float64(n))
}

func (m *Metrics) ParseErrors(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.parseErrors.Add(float64(n))
}

func (m *Metrics) SetSampleRate(rate float64) {
	if m == nil {
		return
	}
	m.sampleRate.Set(rate)
}

func (m *Metrics) SetStreamState(state int) {
	if m == nil {
		return
	}
	m.streamState.Set(float64(state))
}

func (m *Metrics) SetCaptureState(state int) {
	if m == nil {
		return
	}
	m.captureState.Set(float64(state))
}

func (m *Metrics) SessionFinalized() {
	if m == nil {
		return
	}
	m.sessionsFinalized.Inc()
}

func (m *Metrics) ExportFailed() {
	if m == nil {
		return
	}
	m.exportFailures.Inc()
}

func (m *Metrics) RenderTick() {
	if m == nil {
		return
	}
	m.renderTicks.Inc()
}
