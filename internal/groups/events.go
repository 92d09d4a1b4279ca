package groups

import (
	"context"

	"github.com/angelmondragon/feastflow-backend/pkg/pubsub"
)

// EventUpdated carries the full room snapshot after every mutation.
const EventUpdated = "group_updated"

// Topic returns the notification topic of a room.
func Topic(code string) string {
	return "group:" + code
}

// Publisher fans snapshots out to connected members.
type Publisher interface {
	Publish(ctx context.Context, msg pubsub.Message) int
}

func (s *service) broadcast(ctx context.Context, room *Room) {
	msg, err := pubsub.NewMessage(Topic(room.Code), EventUpdated, "", room)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithRoomCode(ctx, room.Code), "encode room snapshot", err)
		}
		return
	}
	s.publisher.Publish(ctx, msg)
}
