package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rejections = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "elevro_gate_rejections_total",
		Help: "Requests stopped by a gate, by outcome",
	},
	[]string{"outcome"},
)
