// Package monitoring exposes Prometheus metrics for the HTTP surface and
// the event pipeline. Counters are registered via promauto and served from
// the /metrics endpoint.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_events_received_total",
			Help: "Inbound event deliveries per topic, including redeliveries",
		},
		[]string{"topic"},
	)

	eventsAcked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_events_acked_total",
			Help: "Inbound events acknowledged per topic",
		},
		[]string{"topic"},
	)

	eventsRequeued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_events_requeued_total",
			Help: "Inbound events rejected back to the queue per topic",
		},
		[]string{"topic"},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_events_published_total",
			Help: "Outbound events published per topic",
		},
		[]string{"topic"},
	)

	orderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_status_transitions_total",
			Help: "Order status transitions committed, by resulting status",
		},
		[]string{"status"},
	)
)

func EventReceived(topic string)  { eventsReceived.WithLabelValues(topic).Inc() }
func EventAcked(topic string)     { eventsAcked.WithLabelValues(topic).Inc() }
func EventRequeued(topic string)  { eventsRequeued.WithLabelValues(topic).Inc() }
func EventPublished(topic string) { eventsPublished.WithLabelValues(topic).Inc() }

// OrderTransition records a committed status change on an order.
func OrderTransition(status string) { orderTransitions.WithLabelValues(status).Inc() }
