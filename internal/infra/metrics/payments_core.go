package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() { register(paymentTransitions, settledAmount) }

var (
	paymentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "payments",
			Name:      "transitions_total",
			Help:      "Ledger writes by purpose and resulting status (pending on initiate, success or failed on settle).",
		},
		[]string{"purpose", "status"},
	)

	settledAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "payments",
			Name:      "settled_amount_total",
			Help:      "Gross amount of payments that reached SUCCESS, by purpose and currency.",
		},
		[]string{"purpose", "currency"},
	)
)

func IncPayment(purpose, status string) {
	paymentTransitions.WithLabelValues(norm(purpose), norm(status)).Inc()
}

// AddPaymentRevenue is called once per payment, on its PENDING to SUCCESS write.
func AddPaymentRevenue(purpose, currency string, amount decimal.Decimal) {
	settledAmount.WithLabelValues(norm(purpose), norm(currency)).Add(amount.InexactFloat64())
}
