// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eco",
		Name:      "cart_mutations_total",
		Help:      "Committed cart line mutations by operation.",
	}, []string{"op"})

	OutOfStock = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eco",
		Name:      "out_of_stock_rejections_total",
		Help:      "Cart mutations rejected because stock was insufficient.",
	})

	Checkouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eco",
		Name:      "checkouts_total",
		Help:      "Checkout attempts by result.",
	}, []string{"result"})

	OrderEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eco",
		Name:      "order_events_total",
		Help:      "Order events by delivery result.",
	}, []string{"result"})
)
