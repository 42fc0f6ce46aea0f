package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stepTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_checkout_step_transitions_total",
		Help: "Checkout wizard transitions by origin and destination step",
	},
	[]string{"from", "to"},
)

var guardRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_checkout_guard_rejections_total",
		Help: "Checkout wizard transitions refused by a step guard",
	},
	[]string{"step"},
)
