package hub

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Client is one connected panel (reception, doctor or admin). Send is
// drained by the connection's write pump; the hub never blocks on it.
type Client struct {
	ID     string
	Send   chan []byte
	doctor bool
}

// Hub tracks connected clients and which of them registered as doctors.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func New() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

// Unregister drops the client and closes its send channel. Safe to call for
// an unknown id.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[clientID]
	if !ok {
		return
	}
	delete(h.clients, clientID)
	close(client.Send)
}

// MarkDoctor flags the client as a doctor-role subscriber.
func (h *Hub) MarkDoctor(clientID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[clientID]
	if !ok {
		return false
	}
	client.doctor = true
	return true
}

// Broadcast sends payload to every connected client. Sends are non-blocking;
// a client with a full buffer misses the message and catches up on the next
// snapshot.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		h.send(client, payload)
	}
}

// NotifyDoctors sends payload to doctor-role clients only.
func (h *Hub) NotifyDoctors(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.doctor {
			h.send(client, payload)
		}
	}
}

// SendTo sends payload to a single client and reports whether it is
// still connected.
func (h *Hub) SendTo(clientID string, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[clientID]
	if !ok {
		return false
	}
	h.send(client, payload)
	return true
}

func (h *Hub) send(client *Client, payload []byte) {
	select {
	case client.Send <- payload:
	default:
		log.Warn().Str("client_id", client.ID).Msg("send buffer full, dropping message")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) DoctorCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, client := range h.clients {
		if client.doctor {
			n++
		}
	}
	return n
}
