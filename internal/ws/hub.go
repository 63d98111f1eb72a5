package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub tracks connected clients and the document each one follows.
type Hub struct {
	mu sync.RWMutex

	clients     map[string]*Client             // by client ID
	subscribers map[string]map[string]struct{} // document ID to client IDs
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		subscribers: make(map[string]map[string]struct{}),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
}

// Unregister removes a client and its subscription.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.detach(client.ID, client.DocID())
	delete(h.clients, client.ID)
}

// Subscribe moves a client to docID. A client follows one document at a time.
func (h *Hub) Subscribe(client *Client, docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old := client.DocID(); old != docID {
		h.detach(client.ID, old)
	}

	if h.subscribers[docID] == nil {
		h.subscribers[docID] = make(map[string]struct{})
	}

	h.subscribers[docID][client.ID] = struct{}{}
	client.SetDocID(docID)
}

// Unsubscribe removes a client from docID.
func (h *Hub) Unsubscribe(client *Client, docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.detach(client.ID, docID)

	if client.DocID() == docID {
		client.SetDocID("")
	}
}

// detach drops clientID from the subscribers of docID. Callers hold mu.
func (h *Hub) detach(clientID, docID string) {
	if docID == "" {
		return
	}

	ids, ok := h.subscribers[docID]
	if !ok {
		return
	}

	delete(ids, clientID)

	if len(ids) == 0 {
		delete(h.subscribers, docID)
	}
}

// recipients returns the subscribers of docID other than excludeClientID.
func (h *Hub) recipients(docID, excludeClientID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Client, 0, len(h.subscribers[docID]))

	for id := range h.subscribers[docID] {
		if id == excludeClientID {
			continue
		}

		if client, ok := h.clients[id]; ok {
			out = append(out, client)
		}
	}

	return out
}

// Broadcast sends msg to every subscriber of docID except excludeClientID.
// It returns after all writes, so callers that broadcast under their own
// lock deliver messages in call order. Failed writes are logged.
func (h *Hub) Broadcast(docID string, msg Message, excludeClientID string) {
	for _, client := range h.recipients(docID, excludeClientID) {
		if err := client.Send(msg); err != nil {
			log.Printf("broadcast to client %s failed: %v", client.ID, err)
		}
	}
}

// BroadcastOps pushes the operations of a committed step to the other
// subscribers of a document.
func (h *Hub) BroadcastOps(docID string, version int, action string, ops json.RawMessage, userID, excludeClientID string) {
	h.Broadcast(docID, Message{
		Type: MessageTypeBroadcast,
		Payload: BroadcastPayload{
			DocID:   docID,
			Version: version,
			Action:  action,
			Ops:     ops,
			UserID:  userID,
		},
	}, excludeClientID)
}

// CloseDocument unsubscribes every client of docID and sends each an error
// carrying reason.
func (h *Hub) CloseDocument(docID, reason string) {
	clients := h.recipients(docID, "")

	h.mu.Lock()
	delete(h.subscribers, docID)

	for _, client := range clients {
		if client.DocID() == docID {
			client.SetDocID("")
		}
	}
	h.mu.Unlock()

	for _, client := range clients {
		if err := client.SendError(ErrorCodeInvalidMessage, reason); err != nil {
			log.Printf("closing document %s for client %s failed: %v", docID, client.ID, err)
		}
	}
}

// ClientCount returns the number of clients subscribed to a document.
func (h *Hub) ClientCount(docID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[docID])
}

// TotalClients returns the total number of connected clients.
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
