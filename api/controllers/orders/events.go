package orders

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/feastflow-backend/api/middleware"
	"github.com/angelmondragon/feastflow-backend/api/responses"
	internalorders "github.com/angelmondragon/feastflow-backend/internal/orders"
	"github.com/angelmondragon/feastflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/feastflow-backend/pkg/errors"
	"github.com/angelmondragon/feastflow-backend/pkg/logger"
	"github.com/angelmondragon/feastflow-backend/pkg/pubsub"
	"github.com/angelmondragon/feastflow-backend/pkg/types"
)

// EventSource is the subscription side of the event hub.
type EventSource interface {
	Subscribe(topic, scope string) *pubsub.Subscriber
	Unsubscribe(sub *pubsub.Subscriber)
}

// Events streams order events as server-sent events. Restaurant actors only see
// their own restaurant; everyone else may narrow with ?restaurantId=.
func Events(source EventSource, heartbeat time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if source == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event hub unavailable"))
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		scope := strings.TrimSpace(r.URL.Query().Get("restaurantId"))
		if actor := middleware.ActorFromContext(r.Context()); actor.Is(enums.ActorRoleRestaurant) {
			scope = actor.RestaurantID
		}

		sub := source.Subscribe(internalorders.Topic, scope)
		defer source.Unsubscribe(sub)

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "scope", scope)
			logg.Info(ctx, "events.stream_opened")
			defer logg.Info(ctx, "events.stream_closed")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
			return
		}
		flusher.Flush()

		if heartbeat <= 0 {
			heartbeat = 15 * time.Second
		}
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case msg, open := <-sub.C():
				if !open {
					// evicted for falling behind
					return
				}
				if err := writeEvent(w, msg); err != nil {
					if logg != nil {
						logg.Warn(ctx, "events.write_failed: "+err.Error())
					}
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, msg pubsub.Message) error {
	payload, err := json.Marshal(types.EventFrame{Type: msg.Type, Data: msg.Data, OccurredAt: msg.OccurredAt})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, payload)
	return err
}
