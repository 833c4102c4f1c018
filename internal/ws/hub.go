package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

const threadEventsRoutingKey = "ws_events.threads"

// Hub maintains the active websocket room per thread.
type Hub struct {
	rooms    map[int]map[*websocket.Conn]bool
	connInfo map[int]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[int]map[*websocket.Conn]bool),
		connInfo: make(map[int]map[*websocket.Conn]ConnInfo),
	}
}

// AddClient registers a websocket connection to a thread room.
func (h *Hub) AddClient(threadID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[threadID]; !ok {
		h.rooms[threadID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[threadID][conn] = true
	if _, ok := h.connInfo[threadID]; !ok {
		h.connInfo[threadID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[threadID][conn] = info
}

// RemoveClient removes a websocket connection from a thread room.
func (h *Hub) RemoveClient(threadID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[threadID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, threadID)
		}
	}
	if infos, ok := h.connInfo[threadID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, threadID)
		}
	}
}

// BroadcastMessage pushes a freshly persisted message to the thread room.
// Delivery is best-effort; clients poll for the durable state.
func (h *Hub) BroadcastMessage(threadID int, msg models.Message) {
	h.broadcast(threadID, models.ThreadEvent{Type: "message", Message: &msg})
}

// BroadcastRead notifies the room that readerID acknowledged the thread.
func (h *Hub) BroadcastRead(threadID int, readerID int) {
	h.broadcast(threadID, models.ThreadEvent{Type: "read", ReaderID: readerID})
}

func (h *Hub) broadcast(threadID int, event models.ThreadEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[threadID]))
	for conn := range h.rooms[threadID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.publishWSError(threadID, conn, err)
			h.RemoveClient(threadID, conn)
		}
	}
}

func (h *Hub) publishWSError(threadID int, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(threadID, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"thread_id":   threadID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), threadEventsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}

func (h *Hub) getConnInfo(threadID int, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.connInfo[threadID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}
