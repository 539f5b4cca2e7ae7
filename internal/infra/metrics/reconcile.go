package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		reconcileTicksTotal,
		reconcileItemsTotal,
		reconcileTickDuration,
	)
}

var (
	reconcileTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconcile_ticks_total",
			Help: "Reconciliation cycles by result (ok/list_error).",
		},
		[]string{"result"},
	)

	// outcome: success|failed|pending|error|noop
	reconcileItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconcile_items_total",
			Help: "Outstanding payments polled by outcome.",
		},
		[]string{"outcome"},
	)

	reconcileTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payment_reconcile_tick_duration_seconds",
			Help:    "Duration of one reconciliation cycle.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)
)

func IncReconcileTick(result string) {
	reconcileTicksTotal.WithLabelValues(norm(result)).Inc()
}

func IncReconcileItem(outcome string) {
	reconcileItemsTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveReconcileTick(d time.Duration) {
	reconcileTickDuration.Observe(d.Seconds())
}
