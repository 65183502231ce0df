package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/davinel000/highlighter-server/internal/buttons"
)

type buttonConfigRequest struct {
	PanelID  string   `json:"panelId"`
	Cooldown *float64 `json:"cooldown"`
	Locked   *bool    `json:"locked"`
}

type buttonFireRequest struct {
	PanelID   string `json:"panelId"`
	ClientID  string `json:"clientId"`
	ButtonID  string `json:"buttonId"`
	Direction string `json:"direction"`
}

func (a *API) ListPanelsHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{"panels": a.buttons.ListIDs()})
}

func (a *API) TriggersConfigGetHandler(w http.ResponseWriter, r *http.Request) {
	panelID := sanitizePanelID(r.URL.Query().Get("panel"))
	jsonResponse(w, http.StatusOK, a.buttons.GetConfig(panelID))
}

func (a *API) TriggersConfigUpdateHandler(w http.ResponseWriter, r *http.Request) {
	var req buttonConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	panelID := sanitizePanelID(req.PanelID)
	cfg, err := a.buttons.UpdateConfig(panelID, buttons.ConfigUpdate{
		Cooldown: req.Cooldown,
		Locked:   req.Locked,
	})
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, cfg)
}

func (a *API) TriggersControlHandler(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	if action != "lock" && action != "unlock" {
		errorResponse(w, http.StatusBadRequest, "action must be lock or unlock")
		return
	}
	panelID := sanitizePanelID(r.URL.Query().Get("panel"))
	locked := action == "lock"
	cfg, err := a.buttons.UpdateConfig(panelID, buttons.ConfigUpdate{Locked: &locked})
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, cfg)
}

func (a *API) TriggersFireHandler(w http.ResponseWriter, r *http.Request) {
	var req buttonFireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	panelID := sanitizePanelID(req.PanelID)
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" || len(clientID) > 128 {
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":   "invalid_client",
			"message": "clientId cannot be empty",
		})
		return
	}
	buttonID := strings.ToLower(strings.TrimSpace(req.ButtonID))
	if buttonID == "" {
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":   "invalid_button",
			"message": "buttonId cannot be empty",
		})
		return
	}
	event, err := a.buttons.Fire(panelID, clientID, buttonID, strings.TrimSpace(req.Direction))
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"panelId": panelID, "event": event})
}

func (a *API) TriggersStateHandler(w http.ResponseWriter, r *http.Request) {
	panelID := sanitizePanelID(r.URL.Query().Get("panel"))
	since := 0
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			errorResponse(w, http.StatusBadRequest, "since must be an integer")
			return
		}
		since = parsed
	}
	jsonResponse(w, http.StatusOK, a.buttons.PanelState(panelID, since))
}

func (a *API) TriggersResetHandler(w http.ResponseWriter, r *http.Request) {
	panelID := sanitizePanelID(r.URL.Query().Get("panel"))
	cfg, err := a.buttons.Reset(panelID)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, cfg)
}
