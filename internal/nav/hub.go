// Package nav fans navigation commands out to push connections registered
// under named groups. It is independent of document state.
package nav

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/davinel000/highlighter-server/internal/ws"
)

// Command records the most recent broadcast for status introspection.
type Command struct {
	Group   string  `json:"group"`
	Message any     `json:"message"`
	TS      float64 `json:"ts"`
}

// Status is the hub's introspection snapshot: subscriber counts per group,
// the last command, and the process default navigation target.
type Status struct {
	Groups  map[string]int `json:"groups"`
	Last    *Command       `json:"last"`
	Default string         `json:"default,omitempty"`
}

type Hub struct {
	mu            sync.Mutex
	groups        map[string]map[ws.Conn]bool
	assignments   map[ws.Conn]string
	lastCommand   *Command
	defaultTarget string
}

func NewHub() *Hub {
	return &Hub{
		groups:      make(map[string]map[ws.Conn]bool),
		assignments: make(map[ws.Conn]string),
	}
}

// Register adds a subscriber under the named group; an empty group means
// "all".
func (h *Hub) Register(group string, c ws.Conn) {
	if group == "" {
		group = "all"
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.groups[group]; !ok {
		h.groups[group] = make(map[ws.Conn]bool)
	}
	h.groups[group][c] = true
	h.assignments[c] = group
}

func (h *Hub) Unregister(c ws.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.assignments[c]
	if !ok {
		return
	}
	delete(h.assignments, c)
	if subs, ok := h.groups[group]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.groups, group)
		}
	}
}

// Broadcast pushes the message to one group, or to the union of every group
// when the group is "all" or empty. Subscribers whose push fails are
// unregistered after the fan-out pass.
func (h *Hub) Broadcast(group string, message any) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Navigation broadcast encode failed: %v", err)
		return
	}
	if group == "" {
		group = "all"
	}

	h.mu.Lock()
	var targets []ws.Conn
	if group == "all" {
		for _, subs := range h.groups {
			for c := range subs {
				targets = append(targets, c)
			}
		}
	} else {
		for c := range h.groups[group] {
			targets = append(targets, c)
		}
	}
	h.lastCommand = &Command{
		Group:   group,
		Message: message,
		TS:      float64(time.Now().UnixNano()) / 1e9,
	}
	h.mu.Unlock()

	var dead []ws.Conn
	for _, c := range targets {
		if !c.TrySend(data) {
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		h.Unregister(c)
	}
}

func (h *Hub) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	groups := make(map[string]int, len(h.groups))
	for group, subs := range h.groups {
		groups[group] = len(subs)
	}
	return Status{
		Groups:  groups,
		Last:    h.lastCommand,
		Default: h.defaultTarget,
	}
}

// SetDefault updates the process-wide default navigation target.
func (h *Hub) SetDefault(target string) {
	h.mu.Lock()
	h.defaultTarget = target
	h.mu.Unlock()
}

func (h *Hub) Default() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.defaultTarget
}
