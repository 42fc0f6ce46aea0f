package payment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_outcomes_total",
			Help: "Payment attempts by terminal outcome (verified, failed, cancelled, verification_failed)",
		},
		[]string{"outcome"},
	)

	failureReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_failure_reports_total",
			Help: "Background payment failure reports by result",
		},
		[]string{"result"},
	)

	retriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_payment_retries_total",
			Help: "Provider sessions minted again for an existing order",
		},
	)
)
