package websocket

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub maintains the set of active clients, fans broadcasts out to the
// subscribed ones, and tracks the most recent facial expression reported
// by any video session.
type Hub struct {
	// Registered clients.
	clients map[*Client]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	// Latest expression published by a video session.
	expressionMu         sync.RWMutex
	expression           string
	expressionConfidence float64

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.Int("clients", count))

		case client := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, client)
			count := len(h.clients)
			h.mu.Unlock()
			// The send channel is never closed; writePump and the
			// liveness loop exit on the client's done signal, so a
			// straggling Enqueue cannot panic the process.
			client.markClosed()
			h.logger.Info("Client unregistered", zap.Int("clients", count))
		}
	}
}

// Broadcast delivers v to every subscribed client except the sender.
// Delivery is best-effort; clients with a full outbound buffer are
// skipped, never waited on.
func (h *Hub) Broadcast(v interface{}, sender *Client) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast", zap.Error(err))
		return
	}
	h.BroadcastRaw(payload, sender)
}

// BroadcastRaw delivers a pre-marshaled payload to every subscribed
// client except the sender.
func (h *Hub) BroadcastRaw(payload []byte, sender *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client == sender || !client.subscribed {
			continue
		}
		select {
		case client.send <- payload:
		default:
			h.logger.Warn("Broadcast dropped for slow client")
		}
	}
}

// SetExpression records the most recent classified expression.
func (h *Hub) SetExpression(label string, confidence float64) {
	h.expressionMu.Lock()
	h.expression = label
	h.expressionConfidence = confidence
	h.expressionMu.Unlock()
}

// LastExpression returns the most recent classified expression, empty
// when no video frame has been analyzed yet.
func (h *Hub) LastExpression() (string, float64) {
	h.expressionMu.RLock()
	defer h.expressionMu.RUnlock()
	return h.expression, h.expressionConfidence
}
