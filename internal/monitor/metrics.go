package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preminder_cycles_total",
			Help: "Monitoring cycles by result (completed, interrupted, aborted).",
		},
		[]string{"result"},
	)
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preminder_events_processed_total",
			Help: "Per-event cycle outcomes.",
		},
		[]string{"result"},
	)
	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "preminder_cycle_duration_seconds",
			Help:    "Wall time of a full monitoring cycle.",
			Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
		},
	)
)
