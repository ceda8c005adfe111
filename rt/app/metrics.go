package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the session's Prometheus instruments.
type Metrics struct {
	FramesRendered prometheus.Counter
	FramesSkipped  prometheus.Counter
	Resizes        prometheus.Counter
	FrameDelta     prometheus.Histogram
	Particles      prometheus.Gauge
}

// NewMetrics registers the instruments with reg. A nil reg leaves them
// unregistered, which is what tests and metric-less hosts want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FramesRendered: f.NewCounter(prometheus.CounterOpts{
			Name: "particlelife_frames_rendered_total",
			Help: "Frames submitted and presented",
		}),
		FramesSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "particlelife_frames_skipped_total",
			Help: "Frames skipped because no surface texture was available",
		}),
		Resizes: f.NewCounter(prometheus.CounterOpts{
			Name: "particlelife_resizes_total",
			Help: "Surface reconfigurations",
		}),
		FrameDelta: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "particlelife_frame_delta_seconds",
			Help:    "Simulation time step per frame",
			Buckets: []float64{0.001, 0.004, 0.008, 1.0 / 60, 0.033, 0.066, 0.1, 0.25, 1},
		}),
		Particles: f.NewGauge(prometheus.GaugeOpts{
			Name: "particlelife_particles",
			Help: "Particles in the field",
		}),
	}
}
