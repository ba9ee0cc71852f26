package services

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type EventType string

const (
	EventPointSubmitted      EventType = "point_submitted"
	EventPointApproved       EventType = "point_approved"
	EventPointRejected       EventType = "point_rejected"
	EventPointDeleted        EventType = "point_deleted"
	EventEditSubmitted       EventType = "edit_submitted"
	EventEditApproved        EventType = "edit_approved"
	EventEditRejected        EventType = "edit_rejected"
	EventDeletionRequested   EventType = "deletion_requested"
	EventDeletionRejected    EventType = "deletion_rejected"
	EventReportStatusChanged EventType = "report_status_changed"
	EventVoteCast            EventType = "vote_cast"
	EventPointFlagged        EventType = "point_flagged"
	EventReportsResolved     EventType = "reports_resolved"
	EventUserBanned          EventType = "user_banned"
	EventUserUnbanned        EventType = "user_unbanned"
	EventHostSample          EventType = "host_sample"
)

type Event struct {
	Type    EventType              `json:"type"`
	PointID string                 `json:"pointId,omitempty"`
	ActorID string                 `json:"actorId,omitempty"`
	At      time.Time              `json:"at"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

func (e *Engine) event(eventType EventType, actor Actor, pointID string, data map[string]interface{}) Event {
	return Event{Type: eventType, PointID: pointID, ActorID: actor.UserID, At: e.now(), Data: data}
}

// EventHub fans committed lifecycle events out to moderator websockets.
type EventHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	ch      chan Event
	log     *zap.Logger
}

func NewEventHub(log *zap.Logger) *EventHub {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventHub{
		clients: map[*websocket.Conn]bool{},
		ch:      make(chan Event, 64),
		log:     log.With(zap.String("module", "events")),
	}
}

func (h *EventHub) Run(ctx context.Context) {
	for {
		select {
		case event := <-h.ch:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteJSON(event); err != nil {
					h.log.Debug("drop websocket client", zap.Error(err))
					delete(h.clients, conn)
					_ = conn.Close()
				}
			}
			h.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// Publish never blocks; events are dropped when the buffer is full.
func (h *EventHub) Publish(event Event) {
	select {
	case h.ch <- event:
	default:
		h.log.Warn("event dropped", zap.String("type", string(event.Type)))
	}
}

func (h *EventHub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *EventHub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
