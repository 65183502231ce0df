// Package ws tracks the live subscriber connections of each document and
// fans change notifications out to them.
package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Conn is one subscriber's push channel. TrySend must not block; it reports
// false when the subscriber cannot accept the message.
type Conn interface {
	TrySend(data []byte) bool
}

// Hub holds the set of live subscribers per document. Registration is
// idempotent; broadcast is fire-and-forget with no queuing or replay.
type Hub struct {
	mu   sync.RWMutex
	docs map[string]map[Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		docs: make(map[string]map[Conn]bool),
	}
}

func (h *Hub) Register(docID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.docs[docID]; !ok {
		h.docs[docID] = make(map[Conn]bool)
	}
	h.docs[docID][c] = true
}

func (h *Hub) Unregister(docID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.docs[docID]
	if !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.docs, docID)
	}
}

// Broadcast serializes the message once and pushes it to every current
// subscriber of the document. Subscribers whose push fails are unregistered
// after the pass completes; the subscriber set is never mutated while it is
// being iterated.
func (h *Hub) Broadcast(docID string, message any) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Broadcast encode failed for %s: %v", docID, err)
		return
	}

	h.mu.RLock()
	targets := make([]Conn, 0, len(h.docs[docID]))
	for c := range h.docs[docID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var dead []Conn
	for _, c := range targets {
		if !c.TrySend(data) {
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		h.Unregister(docID, c)
	}
}

// DocCount returns the number of documents with at least one subscriber.
func (h *Hub) DocCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.docs)
}

// ClientCount returns the total number of live subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, subs := range h.docs {
		total += len(subs)
	}
	return total
}
