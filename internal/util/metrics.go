package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders materialized from cart lines",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order creations",
	}, []string{"reason"})

	OrderNumberConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_number_conflicts_total",
		Help: "Total number of order number uniqueness collisions",
	})

	CartLinesConvertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_lines_converted_total",
		Help: "Total number of cart lines converted into order line snapshots",
	})

	PaymentInitAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_init_attempts_total",
		Help: "Total number of payment initialization attempts",
	})

	PaymentInitFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_init_failed_total",
		Help: "Total number of failed payment initializations",
	}, []string{"reason"})

	PaymentInitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_init_latency_seconds",
		Help:    "Latency of payment provider initialization calls",
		Buckets: prometheus.DefBuckets,
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Total number of payment webhook deliveries by outcome",
	}, []string{"result"})

	OrdersPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_paid_total",
		Help: "Total number of orders reconciled to paid",
	})

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

// Webhook outcome labels for WebhookEventsTotal
const (
	WebhookResultApplied   = "applied"
	WebhookResultIgnored   = "ignored"
	WebhookResultNoMatch   = "no_match"
	WebhookResultForbidden = "forbidden"
	WebhookResultFailed    = "failed"
)
