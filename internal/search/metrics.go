package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var searchErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "preminder_search_errors_total",
		Help: "Search provider calls that failed and were degraded to an empty result set.",
	},
)
