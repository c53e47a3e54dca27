// Package ws serves the live drive-test feed: colourised samples submitted by
// devices are pushed to websocket subscribers.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Envelope is the frame sent to subscribers.
type Envelope struct {
	Type      string    `json:"type"`
	SessionID int64     `json:"session_id"`
	SentAt    time.Time `json:"sent_at"`
	Data      any       `json:"data"`
}

// Hub tracks live subscribers.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	logger      *zap.Logger
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		logger:      logger,
	}
}

// Add registers a connection.
func (h *Hub) Add(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[conn.ID()] = conn
}

// Remove unregisters a connection.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, id)
}

// Count returns the number of subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Publish sends v to every subscriber following sessionID.
func (h *Hub) Publish(sessionID int64, v any) {
	msg, err := json.Marshal(Envelope{Type: "point", SessionID: sessionID, SentAt: time.Now().UTC(), Data: v})
	if err != nil {
		h.logger.Warn("live point not encodable", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for _, conn := range h.connections {
		if !conn.Wants(sessionID) {
			continue
		}
		if !conn.Send(msg) {
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("dropped live point for slow subscribers",
			zap.Int64("session_id", sessionID),
			zap.Int("dropped", dropped),
		)
	}
}

// CloseAll closes every socket; each read pump then unregisters itself.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conn := range h.connections {
		_ = conn.ws.Close()
	}
}
