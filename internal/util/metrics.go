package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogFetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_product_fetch_failures_total",
		Help: "Catalog fetch failures, by stage (listing or per-product detail)",
	}, []string{"stage"})

	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Draft orders accepted by the fulfillment provider",
	}, []string{"kind"})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Order creation attempts that failed",
	}, []string{"reason"})

	OrdersConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_confirmed_total",
		Help: "Orders confirmed for fulfillment",
	})

	OrderConfirmationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_confirmation_failures_total",
		Help: "Draft orders left unconfirmed after a confirmation error",
	})

	PaymentIntentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_intents_created_total",
		Help: "Payment intents created with the payment processor",
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment webhook deliveries, by event type and outcome",
	}, []string{"type", "outcome"})

	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart actions dispatched through the session cart API",
	}, []string{"action"})

	LedgerEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_events_total",
		Help: "Order events applied to the ledger",
	}, []string{"type"})

	ConsumerHandlerRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_handler_retries_total",
		Help: "Kafka messages whose handler failed and will be retried",
	}, []string{"topic"})

	ConsumerMessagesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_messages_dropped_total",
		Help: "Kafka messages committed without being handled",
	}, []string{"topic"})

	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Latency of calls to third-party APIs",
		Buckets: prometheus.DefBuckets,
	}, []string{"upstream", "operation"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
