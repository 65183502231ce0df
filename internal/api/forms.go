package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/davinel000/highlighter-server/internal/forms"
)

type formConfigRequest struct {
	FormID      string   `json:"formId"`
	Question    *string  `json:"question"`
	Cooldown    *float64 `json:"cooldown"`
	AllowRepeat *bool    `json:"allowRepeat"`
	Locked      *bool    `json:"locked"`
}

type formSubmitRequest struct {
	FormID   string `json:"formId"`
	ClientID string `json:"clientId"`
	Answer   string `json:"answer"`
}

func (a *API) ListFormsHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{"forms": a.forms.ListIDs()})
}

func (a *API) FormsConfigGetHandler(w http.ResponseWriter, r *http.Request) {
	formID := sanitizeFormID(r.URL.Query().Get("form"))
	jsonResponse(w, http.StatusOK, a.forms.GetConfig(formID))
}

func (a *API) FormsConfigUpdateHandler(w http.ResponseWriter, r *http.Request) {
	var req formConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	formID := sanitizeFormID(req.FormID)
	cfg, err := a.forms.UpdateConfig(formID, forms.ConfigUpdate{
		Question:    req.Question,
		Cooldown:    req.Cooldown,
		AllowRepeat: req.AllowRepeat,
		Locked:      req.Locked,
	})
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, cfg)
}

func (a *API) FormsControlHandler(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	if action != "lock" && action != "unlock" {
		errorResponse(w, http.StatusBadRequest, "action must be lock or unlock")
		return
	}
	formID := sanitizeFormID(r.URL.Query().Get("form"))
	locked := action == "lock"
	cfg, err := a.forms.UpdateConfig(formID, forms.ConfigUpdate{Locked: &locked})
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, cfg)
}

func (a *API) FormsSubmitHandler(w http.ResponseWriter, r *http.Request) {
	var req formSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	formID := sanitizeFormID(req.FormID)
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" || len(clientID) > 128 {
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":   "invalid_client",
			"message": "clientId cannot be empty",
		})
		return
	}
	record, err := a.forms.Submit(formID, clientID, req.Answer)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"formId": formID, "result": record})
}

func (a *API) FormsResultsHandler(w http.ResponseWriter, r *http.Request) {
	formID := sanitizeFormID(r.URL.Query().Get("form"))
	since := 0
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			errorResponse(w, http.StatusBadRequest, "since must be an integer")
			return
		}
		since = parsed
	}
	jsonResponse(w, http.StatusOK, a.forms.Results(formID, since))
}

func (a *API) FormsClearHandler(w http.ResponseWriter, r *http.Request) {
	formID := sanitizeFormID(r.URL.Query().Get("form"))
	cfg, err := a.forms.Clear(formID)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, cfg)
}
