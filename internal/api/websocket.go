package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/davinel000/highlighter-server/internal/document"
	"github.com/davinel000/highlighter-server/internal/ws"
)

// docMessage is an inbound highlight message on the document channel.
type docMessage struct {
	Type   string  `json:"type"`
	Action string  `json:"action"`
	Start  *int    `json:"start"`
	End    *int    `json:"end"`
	Color  string  `json:"color"`
	T      float64 `json:"t"`
}

// DocSocketHandler is the per-document live channel. The server sends hello
// and init on connect, accepts highlight messages, and pushes state_updated
// and control notifications.
func (a *API) DocSocketHandler(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		jsonResponse(w, http.StatusOK, map[string]any{
			"service": "highlighter-server",
			"docs":    "/api/docs",
		})
		return
	}
	docID, ok := a.sanitizeDocID(r.URL.Query().Get("doc"))
	if !ok {
		errorResponse(w, http.StatusBadRequest, "Invalid doc id")
		return
	}
	clientID := r.URL.Query().Get("client")
	if clientID == "" {
		// Distinct identities keep anonymous viewers from sharing votes.
		clientID = "anon-" + uuid.NewString()
	}

	conn, err := ws.Upgrade(w, r)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}
	log.Printf("WS open doc=%s client=%s", docID, clientID)

	client := ws.NewClient(conn, clientID)
	client.OnMessage = func(data []byte) {
		a.handleDocMessage(docID, clientID, data)
	}
	client.OnClose = func() {
		a.hub.Unregister(docID, client)
		log.Printf("WS closed doc=%s client=%s", docID, clientID)
	}
	a.hub.Register(docID, client)

	hello, _ := json.Marshal(map[string]any{
		"type":   "hello",
		"docId":  docID,
		"locked": a.docs.IsLocked(docID),
	})
	client.TrySend(hello)

	state, err := a.docs.EnsureTokens(docID, "")
	if err != nil {
		log.Printf("WS init failed doc=%s: %v", docID, err)
	} else if len(state.Tokens) > 0 {
		ranges := document.RangesFromVotes(state.Votes)
		if ranges == nil {
			ranges = []document.Range{}
		}
		init, _ := json.Marshal(map[string]any{
			"type":   "init",
			"docId":  docID,
			"ranges": ranges,
			"t":      state.Updated,
		})
		client.TrySend(init)
	}

	client.Run()
}

// handleDocMessage applies one inbound highlight message. Malformed
// messages are logged and dropped; the connection stays open.
func (a *API) handleDocMessage(docID, clientID string, data []byte) {
	var msg docMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("WS parse error from %s: %v", clientID, err)
		return
	}
	if msg.Type != "highlight" {
		return
	}
	switch msg.Action {
	case "set_range":
		start := 0
		if msg.Start != nil {
			start = *msg.Start
		}
		end := start
		if msg.End != nil {
			end = *msg.End
		}
		changed, err := a.docs.ApplyHighlight(docID, clientID, start, end, msg.Color, msg.T)
		if err != nil {
			log.Printf("Highlight failed doc=%s client=%s: %v", docID, clientID, err)
			return
		}
		if changed {
			a.hub.Broadcast(docID, map[string]any{"type": "state_updated", "docId": docID})
		}
	case "clear_all":
		changed, err := a.docs.ClearClient(docID, clientID, msg.T)
		if err != nil {
			log.Printf("Clear failed doc=%s client=%s: %v", docID, clientID, err)
			return
		}
		if changed {
			a.hub.Broadcast(docID, map[string]any{"type": "state_updated", "docId": docID})
		}
	}
}

// ControlSocketHandler is the navigation channel: the client joins a group
// and receives navigate/reload commands. Inbound messages are discarded.
func (a *API) ControlSocketHandler(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")
	if group == "" {
		group = "all"
	}
	clientID := r.URL.Query().Get("client")
	if clientID == "" {
		clientID = "anon"
	}

	conn, err := ws.Upgrade(w, r)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}

	client := ws.NewClient(conn, clientID)
	client.OnClose = func() {
		a.nav.Unregister(client)
	}
	a.nav.Register(group, client)

	hello, _ := json.Marshal(map[string]any{
		"type":     "control_hello",
		"group":    group,
		"clientId": clientID,
	})
	client.TrySend(hello)

	client.Run()
}
