package cart

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_sync_items_total",
			Help: "Local cart lines submitted to the backend on login, by outcome",
		},
		[]string{"outcome"},
	)

	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_sync_runs_total",
			Help: "Cart reconciliation runs, by result (empty, synced, partial, failed)",
		},
		[]string{"result"},
	)
)
