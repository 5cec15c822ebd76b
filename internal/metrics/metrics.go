// Package metrics exposes decision counters for Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jmylchreest/chime/internal/model"
)

// Metrics holds the chimed decision metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Decisions by kind and sound reason
	Decisions *prometheus.CounterVec

	// Events whose visual was suppressed, by kind
	VisualSuppressed *prometheus.CounterVec

	// Sounds that actually played, by kind
	SoundPlayed *prometheus.CounterVec

	// Wall time of governed playback attempts
	PlaybackDuration prometheus.Histogram
}

// New creates a Metrics instance with all metrics registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chime_decisions_total",
			Help: "Total delivery decisions by notification kind and sound reason",
		}, []string{"kind", "reason"}),

		VisualSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chime_visual_suppressed_total",
			Help: "Total notifications whose visual was suppressed",
		}, []string{"kind"}),

		SoundPlayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chime_sound_played_total",
			Help: "Total notification sounds played",
		}, []string{"kind"}),

		PlaybackDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chime_playback_duration_seconds",
			Help:    "Duration of sound playback attempts",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordDecision counts one decision. playback is the time spent in the
// sound governor and is only observed when a sound was attempted.
func (m *Metrics) RecordDecision(d model.Decision, playback time.Duration) {
	if m == nil {
		return
	}

	kind := d.Kind.String()
	m.Decisions.WithLabelValues(kind, d.Reason.String()).Inc()
	if !d.ShowVisual {
		m.VisualSuppressed.WithLabelValues(kind).Inc()
	}
	if d.SoundPlayed {
		m.SoundPlayed.WithLabelValues(kind).Inc()
	}
	if d.SoundAttempted {
		m.PlaybackDuration.Observe(playback.Seconds())
	}
}
