package hub

import (
	"encoding/json"
	"peek/backend/internal/logging"
	"sync"

	"go.uber.org/zap"
)

const (
	EventCommentCreated = "comment.created"
	EventLoveUpdated    = "love.updated"
)

// Event is a live update pushed to viewers of a peek.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Client is one open event stream. The SSE handler drains it.
type Client chan []byte

// Hub tracks the clients currently watching each peek.
type Hub struct {
	peeks map[uint]map[Client]bool
	mu    sync.RWMutex
}

// GlobalHub is the process-wide hub used by the HTTP handlers.
var GlobalHub = NewHub()

func NewHub() *Hub {
	return &Hub{
		peeks: make(map[uint]map[Client]bool),
	}
}

// Subscribe registers client for events on peekID.
func (h *Hub) Subscribe(peekID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.peeks[peekID]; !ok {
		h.peeks[peekID] = make(map[Client]bool)
	}
	h.peeks[peekID][client] = true
}

// Unsubscribe removes client and closes its channel.
func (h *Hub) Unsubscribe(peekID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.peeks[peekID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client)
			if len(clients) == 0 {
				delete(h.peeks, peekID)
			}
		}
	}
}

// Watchers returns the number of clients subscribed to peekID.
func (h *Hub) Watchers(peekID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peeks[peekID])
}

// Broadcast sends event to every client watching peekID. Slow clients miss the event.
func (h *Hub) Broadcast(peekID uint, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.peeks[peekID]
	if !ok {
		return
	}
	messageBytes, err := json.Marshal(event)
	if err != nil {
		logging.Error("Failed to marshal hub event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	for client := range clients {
		select {
		case client <- messageBytes:
		default:
		}
	}
}
