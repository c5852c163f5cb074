package osd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the loop's Prometheus collectors.
type Metrics struct {
	Ticks    *prometheus.CounterVec
	Degraded prometheus.Counter
	Reopens  prometheus.Counter
	Duration prometheus.Histogram
	Interval prometheus.Gauge
}

// NewMetrics registers the collectors with reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "perf_overlay",
			Name:      "ticks_total",
			Help:      "Overlay loop ticks by the state they ended in.",
		}, []string{"state"}),
		Degraded: f.NewCounter(prometheus.CounterOpts{
			Namespace: "perf_overlay",
			Name:      "renderer_degraded_total",
			Help:      "Ticks that dropped the renderer handle after a failure.",
		}),
		Reopens: f.NewCounter(prometheus.CounterOpts{
			Namespace: "perf_overlay",
			Name:      "renderer_reopens_total",
			Help:      "Renderer handles recreated because another overlay held the expected slot.",
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "perf_overlay",
			Name:      "tick_duration_seconds",
			Help:      "Time spent in one overlay loop tick.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		Interval: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "perf_overlay",
			Name:      "tick_interval_seconds",
			Help:      "Delay before the next tick.",
		}),
	}
}
