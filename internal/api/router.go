package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type routerSendRequest struct {
	Action         string   `json:"action"`
	Target         string   `json:"target"`
	Group          string   `json:"group"`
	PreserveClient *bool    `json:"preserveClient"`
	PreserveParams []string `json:"preserveParams"`
	SetDefault     *bool    `json:"setDefault"`
}

// RouterSendHandler broadcasts a navigate or reload command to a subscriber
// group. A navigate command without an explicit opt-out also updates the
// process default target.
func (a *API) RouterSendHandler(w http.ResponseWriter, r *http.Request) {
	var req routerSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	group := strings.TrimSpace(req.Group)
	if group == "" {
		group = "all"
	}
	action := strings.ToLower(req.Action)
	if action == "" {
		action = "navigate"
	}

	var message map[string]any
	switch action {
	case "navigate":
		if req.Target == "" {
			errorResponse(w, http.StatusBadRequest, "target is required for navigate action")
			return
		}
		preserveClient := true
		if req.PreserveClient != nil {
			preserveClient = *req.PreserveClient
		}
		preserveParams := req.PreserveParams
		if preserveParams == nil {
			preserveParams = []string{}
		}
		message = map[string]any{
			"type":           "navigate",
			"target":         req.Target,
			"preserveClient": preserveClient,
			"preserveParams": preserveParams,
		}
		if req.SetDefault == nil || *req.SetDefault {
			a.nav.SetDefault(req.Target)
		}
	case "reload":
		message = map[string]any{"type": "reload"}
		if req.Target != "" {
			message["target"] = req.Target
		}
	default:
		errorResponse(w, http.StatusBadRequest, "Unsupported router action")
		return
	}

	a.nav.Broadcast(group, message)
	jsonResponse(w, http.StatusOK, map[string]any{"ok": true, "group": group, "action": action})
}

func (a *API) RouterStatusHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, a.nav.Status())
}

func (a *API) RouterDefaultHandler(w http.ResponseWriter, r *http.Request) {
	var target any
	if t := a.nav.Default(); t != "" {
		target = t
	}
	jsonResponse(w, http.StatusOK, map[string]any{"default": target})
}
