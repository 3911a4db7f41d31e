package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var notificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "preminder_notifications_total",
		Help: "Notification dispatch outcomes by status.",
	},
	[]string{"status"},
)
