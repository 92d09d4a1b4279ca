package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EventMetrics records fan-out activity on the in-process hub.
type EventMetrics struct {
	published   *prometheus.CounterVec
	delivered   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	subscribers *prometheus.GaugeVec
	relayErrors *prometheus.CounterVec
}

// NewEventMetrics registers the event metrics on the provided registerer.
func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	if reg == nil {
		return &EventMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Events published to the hub by topic kind and type.",
	}, []string{"topic", "type"})
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_delivered_total",
		Help: "Events handed to subscriber buffers.",
	}, []string{"topic"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_dropped_total",
		Help: "Subscribers evicted because their buffer was full.",
	}, []string{"topic"})
	subscribers := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "events_subscribers",
		Help: "Currently connected subscribers.",
	}, []string{"topic"})
	relayErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_relay_errors_total",
		Help: "Failures forwarding events to or from the cross-instance relay.",
	}, []string{"relay", "direction"})
	reg.MustRegister(published, delivered, dropped, subscribers, relayErrors)
	return &EventMetrics{
		published:   published,
		delivered:   delivered,
		dropped:     dropped,
		subscribers: subscribers,
		relayErrors: relayErrors,
	}
}

// IncPublished counts one published event.
func (e *EventMetrics) IncPublished(topic, eventType string) {
	if e == nil || e.published == nil {
		return
	}
	e.published.WithLabelValues(TopicKind(topic), normalizeLabel(eventType)).Inc()
}

// AddDelivered counts events placed on subscriber buffers.
func (e *EventMetrics) AddDelivered(topic string, n int) {
	if e == nil || e.delivered == nil || n <= 0 {
		return
	}
	e.delivered.WithLabelValues(TopicKind(topic)).Add(float64(n))
}

// IncDropped counts one evicted subscriber.
func (e *EventMetrics) IncDropped(topic string) {
	if e == nil || e.dropped == nil {
		return
	}
	e.dropped.WithLabelValues(TopicKind(topic)).Inc()
}

// SubscriberAdded bumps the connected subscriber gauge.
func (e *EventMetrics) SubscriberAdded(topic string) {
	if e == nil || e.subscribers == nil {
		return
	}
	e.subscribers.WithLabelValues(TopicKind(topic)).Inc()
}

// SubscriberRemoved lowers the connected subscriber gauge.
func (e *EventMetrics) SubscriberRemoved(topic string) {
	if e == nil || e.subscribers == nil {
		return
	}
	e.subscribers.WithLabelValues(TopicKind(topic)).Dec()
}

// IncRelayError counts a relay failure; direction is "out" or "in".
func (e *EventMetrics) IncRelayError(relay, direction string) {
	if e == nil || e.relayErrors == nil {
		return
	}
	e.relayErrors.WithLabelValues(normalizeLabel(relay), normalizeLabel(direction)).Inc()
}

// TopicKind collapses per-room topics into one label value so cardinality stays bounded.
func TopicKind(topic string) string {
	for i := 0; i < len(topic); i++ {
		if topic[i] == ':' {
			return topic[:i]
		}
	}
	return normalizeLabel(topic)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
