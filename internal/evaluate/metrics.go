package evaluate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var oracleFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "preminder_oracle_failures_total",
		Help: "Oracle classifications that failed closed, by reason.",
	},
	[]string{"reason"},
)
