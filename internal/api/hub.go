// Package api exposes the prediction service over HTTP and streams
// completed predictions to WebSocket subscribers.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// EventHub fans completed prediction results out to connected WebSocket
// clients. Publishing never blocks the prediction pipeline: when the
// buffer is full the event is dropped.
type EventHub struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex
	broadcast chan any
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewEventHub() *EventHub {
	h := &EventHub{
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 100),
		stop:      make(chan struct{}),
	}
	go h.run()
	return h
}

// Publish queues an event for broadcast.
func (h *EventHub) Publish(v any) {
	select {
	case h.broadcast <- v:
	case <-h.stop:
	default:
		log.Debug().Msg("event buffer full, dropping prediction event")
	}
}

// Close stops the broadcaster and disconnects all clients.
func (h *EventHub) Close() {
	h.stopOnce.Do(func() {
		close(h.stop)

		h.clientsMu.Lock()
		for client := range h.clients {
			client.Close()
		}
		h.clients = make(map[*websocket.Conn]bool)
		h.clientsMu.Unlock()
	})
}

func (h *EventHub) run() {
	for {
		select {
		case v := <-h.broadcast:
			h.broadcastToClients(v)
		case <-h.stop:
			return
		}
	}
}

func (h *EventHub) broadcastToClients(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal prediction event")
		return
	}

	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for client := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Msg("dropping unresponsive websocket client")
			client.Close()
			delete(h.clients, client)
		}
	}
}

// HandleWS upgrades the request and keeps the connection registered
// until the client disconnects.
func (h *EventHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.clientsMu.Lock()
	h.clients[conn] = true
	h.clientsMu.Unlock()

	// The stream is one-way; reads only detect disconnection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.clientsMu.Lock()
	delete(h.clients, conn)
	h.clientsMu.Unlock()
}

// ClientCount reports the number of connected subscribers.
func (h *EventHub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
