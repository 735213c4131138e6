// Package metrics exposes Prometheus collectors for the decision layer.
//
// Collectors are registered on a caller-owned registry rather than the
// global default so that tests and embedded layers stay isolated.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/danielpatrickdp/feedback-layer/internal/diag"
)

// #region collectors
// Metrics groups the decision layer's collectors.
type Metrics struct {
	Decisions   *prometheus.CounterVec
	Feedback    *prometheus.CounterVec
	Clamps      *prometheus.CounterVec
	Diagnostics *prometheus.CounterVec
	Entries     prometheus.Gauge
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "feedbacklayer_decisions_total",
			Help: "Mode selections by chosen mode",
		}, []string{"mode"}),
		Feedback: f.NewCounterVec(prometheus.CounterOpts{
			Name: "feedbacklayer_feedback_total",
			Help: "Feedback applications by mode and outcome",
		}, []string{"mode", "action"}),
		Clamps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "feedbacklayer_clamps_total",
			Help: "Association updates clamped, by bound",
		}, []string{"bound"}),
		Diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "feedbacklayer_diagnostics_total",
			Help: "Diagnostic events by code",
		}, []string{"code"}),
		Entries: f.NewGauge(prometheus.GaugeOpts{
			Name: "feedbacklayer_association_entries",
			Help: "Materialized association weights",
		}),
	}
}

// #endregion collectors

// #region recorders
// ObserveDecision counts a selection of mode.
func (m *Metrics) ObserveDecision(mode string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(mode).Inc()
}

// ObserveFeedback counts a feedback outcome and its clamps.
func (m *Metrics) ObserveFeedback(mode, action string, clampedMin, clampedMax int, entries int) {
	if m == nil {
		return
	}
	m.Feedback.WithLabelValues(mode, action).Inc()
	if clampedMin > 0 {
		m.Clamps.WithLabelValues("min").Add(float64(clampedMin))
	}
	if clampedMax > 0 {
		m.Clamps.WithLabelValues("max").Add(float64(clampedMax))
	}
	m.Entries.Set(float64(entries))
}

// SetEntries records the current size of the association table.
func (m *Metrics) SetEntries(n int) {
	if m == nil {
		return
	}
	m.Entries.Set(float64(n))
}

// Sink returns a diag.Sink that counts events by code.
func (m *Metrics) Sink() diag.Sink {
	return diag.SinkFunc(func(ev diag.Event) {
		if m == nil {
			return
		}
		m.Diagnostics.WithLabelValues(string(ev.Code)).Inc()
	})
}

// #endregion recorders
