// Package realtime fans out state-change events to websocket subscribers.
// Delivery is best-effort: a slow or dead subscriber is dropped without
// affecting the others, and publishing never blocks the caller.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Message is the envelope sent to every subscriber.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub tracks connected clients and broadcasts messages to all of them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub. Call Run to start dispatching.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run dispatches registrations and broadcasts until the context ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow subscriber, drop it.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Publish broadcasts an event to every connected subscriber. It never
// blocks; if the hub cannot keep up the event is dropped and logged.
func (h *Hub) Publish(event string, payload any) {
	data, err := json.Marshal(Message{Type: event, Data: payload})
	if err != nil {
		log.Printf("realtime: failed to marshal %s event: %v", event, err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		log.Printf("realtime: broadcast queue full, dropping %s event", event)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
