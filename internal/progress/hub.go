package progress

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one progress update pushed to connected clients while a
// batch download runs.
type Event struct {
	Type    string    `json:"type"` // batch_started | batch_item | item_progress | batch_completed
	JobID   string    `json:"job_id"`
	Current int       `json:"current,omitempty"`
	Total   int       `json:"total,omitempty"`
	Percent int       `json:"percent,omitempty"`
	Title   string    `json:"title,omitempty"`
	At      time.Time `json:"at"`
}

const (
	EventBatchStarted   = "batch_started"
	EventBatchItem      = "batch_item"
	EventItemProgress   = "item_progress"
	EventBatchCompleted = "batch_completed"
)

// Hub fans progress events out to every connected websocket. A write
// failure drops the connection; slow clients never block a batch run.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *Hub) Join(ws *websocket.Conn) {
	h.mu.Lock()
	h.conns[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Leave(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Count reports the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ws := range h.conns {
		if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = ws.Close()
			delete(h.conns, ws)
		}
	}
}
