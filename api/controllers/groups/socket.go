package groups

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/feastflow-backend/api/middleware"
	"github.com/angelmondragon/feastflow-backend/api/responses"
	internalgroups "github.com/angelmondragon/feastflow-backend/internal/groups"
	pkgerrors "github.com/angelmondragon/feastflow-backend/pkg/errors"
	"github.com/angelmondragon/feastflow-backend/pkg/logger"
	"github.com/angelmondragon/feastflow-backend/pkg/pubsub"
	"github.com/angelmondragon/feastflow-backend/pkg/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 4096
)

// EventSource is the subscription side of the event hub.
type EventSource interface {
	Subscribe(topic, scope string) *pubsub.Subscriber
	Unsubscribe(sub *pubsub.Subscriber)
}

// NewUpgrader accepts the listed origins, or any origin when the list is empty.
func NewUpgrader(origins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[origin] = struct{}{}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// Socket streams room snapshots to a member over a WebSocket. The current
// snapshot is sent first, then one frame per mutation.
func Socket(svc internalgroups.Service, source EventSource, upgrader *websocket.Upgrader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || source == nil || upgrader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "group sync unavailable"))
			return
		}
		actor := middleware.ActorFromContext(r.Context())
		code := roomCode(r)

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithRoomCode(ctx, code)
		}

		// subscribe before reading the snapshot so no mutation falls in between
		sub := source.Subscribe(internalgroups.Topic(code), "")
		defer source.Unsubscribe(sub)

		room, err := svc.Get(ctx, code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !room.IsMember(actor.ID) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "join the room first"))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			if logg != nil {
				logg.Warn(ctx, "group.socket_upgrade_failed: "+err.Error())
			}
			return
		}
		defer conn.Close()
		if logg != nil {
			logg.Info(ctx, "group.socket_opened")
			defer logg.Info(ctx, "group.socket_closed")
		}

		snapshot, err := pubsub.NewMessage(internalgroups.Topic(code), internalgroups.EventUpdated, "", room)
		if err != nil || writeFrame(conn, snapshot) != nil {
			return
		}

		done := make(chan struct{})
		go readPump(conn, done)

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case msg, open := <-sub.C():
				if !open {
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "resync"), time.Now().Add(writeWait))
					return
				}
				if err := writeFrame(conn, msg); err != nil {
					return
				}
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, msg pubsub.Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(types.EventFrame{Type: msg.Type, Data: msg.Data, OccurredAt: msg.OccurredAt})
}
