// Package websocket fans bus events out to this process's connected
// clients. Every process runs a hub; the shared bus makes an event
// published anywhere reach clients connected everywhere.
package websocket

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/riftlane/match-backend/internal/broadcast"
)

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	events     chan broadcast.Event
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	log        *zap.Logger
	mu         sync.RWMutex
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan broadcast.Event, 256),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				h.clients[client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if !h.stopped {
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mu.Unlock()

		case evt := <-h.events:
			h.deliver(evt)
		}
	}
}

// Stop gracefully shuts down the hub. Blocks until Run() has exited.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

// Dispatch hands a bus event to the hub's loop. Drops the event when the
// buffer is full; clients recover from dropped events via snapshot pulls.
func (h *Hub) Dispatch(evt broadcast.Event) {
	select {
	case h.events <- evt:
	default:
		h.log.Warn("hub event buffer full, dropping event", zap.String("topic", string(evt.Topic)))
	}
}

func (h *Hub) deliver(evt broadcast.Event) {
	raw, err := json.Marshal(evt)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.wants(evt) {
			continue
		}
		select {
		case client.send <- raw:
		default:
			// Slow consumer; skip rather than stall the loop.
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes the client, blocking until the loop takes it so a
// disconnect is never lost under load. Returns once the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
