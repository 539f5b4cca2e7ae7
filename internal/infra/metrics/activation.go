package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		activationsTotal,
		commissionsTotal,
		commissionAmountTotal,
	)
}

var (
	// outcome: applied|noop|skipped|error
	activationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activations_total",
			Help: "Activation dispatches by payment purpose and outcome.",
		},
		[]string{"purpose", "outcome"},
	)

	// result: granted|duplicate|error
	commissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commissions_total",
			Help: "Commission grant attempts by type and result.",
		},
		[]string{"type", "result"},
	)

	commissionAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_amount_total",
			Help: "Sum of granted commission amounts by type.",
		},
		[]string{"type"},
	)
)

func IncActivation(purpose, outcome string) {
	activationsTotal.WithLabelValues(norm(purpose), norm(outcome)).Inc()
}

func IncCommission(typ, result string) {
	commissionsTotal.WithLabelValues(norm(typ), norm(result)).Inc()
}

func AddCommissionAmount(typ string, amount decimal.Decimal) {
	commissionAmountTotal.WithLabelValues(norm(typ)).Add(amount.InexactFloat64())
}
