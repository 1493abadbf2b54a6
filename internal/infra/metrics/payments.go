package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		webhookResults,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by status (initiated/succeeded/duplicate).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_rub_total",
			Help: "Total value of successful payments in rubles, by product.",
		},
		[]string{"product"},
	)

	webhookResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_results_total",
			Help: "Gateway notification outcomes (ok/duplicate/missing_params/not_found/bad_signature).",
		},
		[]string{"result"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(product string, amountRUB int64) {
	paymentsRevenueTotal.WithLabelValues(norm(product)).Add(float64(amountRUB))
}

func IncWebhookResult(result string) {
	webhookResults.WithLabelValues(norm(result)).Inc()
}
