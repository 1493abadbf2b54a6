package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsGranted,
		subscriptionsExpired,
		remindersSent,
	)
}

var (
	subscriptionsGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_granted_total",
			Help: "Subscription grants by method and product.",
		},
		[]string{"method", "product"},
	)

	subscriptionsExpired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Trial subscriptions deactivated by the expiry sweep, by product.",
		},
		[]string{"product"},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Pre-expiry reminders delivered by the reminder sweep.",
		},
	)
)

func IncSubscriptionGranted(method, product string) {
	subscriptionsGranted.WithLabelValues(norm(method), norm(product)).Inc()
}

func IncSubscriptionsExpired(product string, n int) {
	subscriptionsExpired.WithLabelValues(norm(product)).Add(float64(n))
}

func IncRemindersSent(n int) {
	remindersSent.Add(float64(n))
}
