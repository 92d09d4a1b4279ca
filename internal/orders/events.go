package orders

import (
	"context"

	"github.com/angelmondragon/feastflow-backend/pkg/pubsub"
)

// Topic carries every order event; the scope is the restaurant id.
const Topic = "orders"

const (
	EventCreated        = "order_created"
	EventAccepted       = "order_accepted"
	EventRejected       = "order_rejected"
	EventReadyForPickup = "order_ready_for_pickup"
	EventAssigned       = "order_assigned"
	EventReassigned     = "order_reassigned"
	EventUpdated        = "order_updated"
)

// Publisher fans events out to connected observers without blocking.
type Publisher interface {
	Publish(ctx context.Context, msg pubsub.Message) int
}

func (s *service) emit(ctx context.Context, eventType string, order *Order) {
	msg, err := pubsub.NewMessage(Topic, eventType, order.RestaurantID, order)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithOrderCode(ctx, order.Code), "encode "+eventType+" event", err)
		}
		return
	}
	s.publisher.Publish(ctx, msg)
}
