package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionsExpiredTotal,
		promotionsCompletedTotal,
		subscriptionRemindersTotal,
	)
}

var (
	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of subscriptions processed by the expiry worker.",
		},
	)

	promotionsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promotions_completed_total",
			Help: "Total number of promotions closed by the sweep.",
		},
	)

	subscriptionRemindersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_reminders_total",
			Help: "Expiry reminders published, by days before expiry.",
		},
		[]string{"days"},
	)
)

func IncSubscriptionsExpired(count int) {
	subscriptionsExpiredTotal.Add(float64(count))
}

func IncPromotionsCompleted(count int) {
	promotionsCompletedTotal.Add(float64(count))
}

func IncSubscriptionReminder(days int) {
	subscriptionRemindersTotal.WithLabelValues(strconv.Itoa(days)).Inc()
}
