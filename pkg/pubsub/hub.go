package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/feastflow-backend/pkg/logger"
	"github.com/angelmondragon/feastflow-backend/pkg/metrics"
)

const (
	defaultBuffer       = 32
	defaultRelayBuffer  = 256
	relayForwardTimeout = 5 * time.Second
)

// Message is one event fanned out to subscribers of a topic.
type Message struct {
	Topic      string          `json:"topic"`
	Type       string          `json:"type"`
	Scope      string          `json:"scope,omitempty"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurredAt"`
	Origin     string          `json:"origin,omitempty"`
}

// NewMessage marshals payload into a message ready for Publish.
func NewMessage(topic, eventType, scope string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Topic:      topic,
		Type:       eventType,
		Scope:      scope,
		Data:       raw,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// Subscriber receives messages for one topic. C is closed once the
// subscriber is unsubscribed or evicted for falling behind.
type Subscriber struct {
	id    uint64
	topic string
	scope string
	ch    chan Message
	once  sync.Once
}

// C returns the delivery channel.
func (s *Subscriber) C() <-chan Message {
	return s.ch
}

// Topic returns the subscribed topic.
func (s *Subscriber) Topic() string {
	return s.topic
}

func (s *Subscriber) accepts(msg Message) bool {
	return s.scope == "" || msg.Scope == "" || s.scope == msg.Scope
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Options configures a Hub.
type Options struct {
	Buffer int
	// RelayBuffer bounds the messages waiting to be forwarded to the relay.
	RelayBuffer int
	InstanceID  string
	Relay       Relay
	Metrics     *metrics.EventMetrics
	Logger      *logger.Logger
}

// Hub is the in-process publish/subscribe registry. Publish never blocks:
// a subscriber whose buffer is full is dropped, and relay traffic is queued
// for Run to forward.
type Hub struct {
	mu       sync.Mutex
	topics   map[string]map[uint64]*Subscriber
	nextID   uint64
	buffer   int
	origin   string
	relay    Relay
	outbound chan Message
	metrics  *metrics.EventMetrics
	logg     *logger.Logger
}

// NewHub builds an empty hub.
func NewHub(opts Options) *Hub {
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	h := &Hub{
		topics:  make(map[string]map[uint64]*Subscriber),
		buffer:  buffer,
		origin:  opts.InstanceID,
		relay:   opts.Relay,
		metrics: opts.Metrics,
		logg:    opts.Logger,
	}
	if h.relay != nil {
		size := opts.RelayBuffer
		if size <= 0 {
			size = defaultRelayBuffer
		}
		h.outbound = make(chan Message, size)
	}
	return h
}

// Subscribe registers a subscriber on topic. A non-empty scope limits delivery
// to messages with the same scope or no scope.
func (h *Hub) Subscribe(topic, scope string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &Subscriber{
		id:    h.nextID,
		topic: topic,
		scope: scope,
		ch:    make(chan Message, h.buffer),
	}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[uint64]*Subscriber)
		h.topics[topic] = subs
	}
	subs[sub.id] = sub
	h.metrics.SubscriberAdded(topic)
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscriber) bool {
	subs, ok := h.topics[sub.topic]
	if !ok {
		return false
	}
	if _, ok := subs[sub.id]; !ok {
		return false
	}
	delete(subs, sub.id)
	if len(subs) == 0 {
		delete(h.topics, sub.topic)
	}
	sub.close()
	h.metrics.SubscriberRemoved(sub.topic)
	return true
}

// Count returns the number of live subscribers on topic.
func (h *Hub) Count(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

// Publish delivers msg to matching local subscribers and queues it for the
// relay when one is configured. It returns the number of local deliveries.
// A full relay queue drops the message rather than wait on the broker.
func (h *Hub) Publish(ctx context.Context, msg Message) int {
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now().UTC()
	}
	h.metrics.IncPublished(msg.Topic, msg.Type)
	delivered := h.deliver(ctx, msg)
	if h.outbound != nil && msg.Origin == "" {
		msg.Origin = h.origin
		select {
		case h.outbound <- msg:
		default:
			h.metrics.IncRelayError(h.relay.Name(), "out")
			if h.logg != nil {
				h.logg.Warn(ctx, "relay queue full, dropping "+msg.Type+" on "+msg.Topic)
			}
		}
	}
	return delivered
}

func (h *Hub) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.outbound:
			fwdCtx, cancel := context.WithTimeout(ctx, relayForwardTimeout)
			err := h.relay.Forward(fwdCtx, msg)
			cancel()
			if err != nil {
				h.metrics.IncRelayError(h.relay.Name(), "out")
				if h.logg != nil {
					h.logg.Warn(ctx, "relay forward failed: "+err.Error())
				}
			}
		}
	}
}

func (h *Hub) deliver(ctx context.Context, msg Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delivered := 0
	for _, sub := range h.topics[msg.Topic] {
		if !sub.accepts(msg) {
			continue
		}
		select {
		case sub.ch <- msg:
			delivered++
		default:
			h.removeLocked(sub)
			h.metrics.IncDropped(msg.Topic)
			if h.logg != nil {
				h.logg.Warn(ctx, "dropping slow subscriber on "+msg.Topic)
			}
		}
	}
	h.metrics.AddDelivered(msg.Topic, delivered)
	return delivered
}

// Run forwards queued messages to the relay and consumes it until ctx is
// cancelled. Messages this instance forwarded itself are skipped since they
// were already delivered locally.
func (h *Hub) Run(ctx context.Context) error {
	if h.relay == nil {
		<-ctx.Done()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.forward(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	err := h.relay.Run(ctx, func(msg Message) {
		if msg.Origin == h.origin {
			return
		}
		h.deliver(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		h.metrics.IncRelayError(h.relay.Name(), "in")
		return err
	}
	return nil
}

// Close shuts every subscriber and the relay.
func (h *Hub) Close() error {
	h.mu.Lock()
	for _, subs := range h.topics {
		for _, sub := range subs {
			h.removeLocked(sub)
		}
	}
	h.mu.Unlock()
	if h.relay != nil {
		return h.relay.Close()
	}
	return nil
}
