// Package api maps the HTTP and websocket surface onto the document store,
// the secondary resource managers, and the hubs.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/davinel000/highlighter-server/internal/buttons"
	"github.com/davinel000/highlighter-server/internal/document"
	"github.com/davinel000/highlighter-server/internal/forms"
	"github.com/davinel000/highlighter-server/internal/nav"
	"github.com/davinel000/highlighter-server/internal/resource"
	"github.com/davinel000/highlighter-server/internal/ws"
)

type API struct {
	docs    *document.Store
	forms   *forms.Manager
	buttons *buttons.Manager
	hub     *ws.Hub
	nav     *nav.Hub
}

func New(docs *document.Store, formsMgr *forms.Manager, buttonsMgr *buttons.Manager, hub *ws.Hub, navHub *nav.Hub) *API {
	return &API{
		docs:    docs,
		forms:   formsMgr,
		buttons: buttonsMgr,
		hub:     hub,
		nav:     navHub,
	}
}

// Routes registers every endpoint on the router.
func (a *API) Routes(r *mux.Router) {
	r.HandleFunc("/health", a.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", a.StatsHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/docs", a.ListDocsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/sources", a.ListSourcesHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/text", a.TextHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/tokens", a.TokensHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/state", a.StateHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/myranges", a.MyRangesHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/phrases", a.PhrasesHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/control", a.ControlHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/clear", a.ClearHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/reset", a.ResetHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/export", a.ExportHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/forms", a.ListFormsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/forms/config", a.FormsConfigGetHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/forms/config", a.FormsConfigUpdateHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/forms/control", a.FormsControlHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/forms/submit", a.FormsSubmitHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/forms/results", a.FormsResultsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/forms/clear", a.FormsClearHandler).Methods(http.MethodPost)

	r.HandleFunc("/api/panels", a.ListPanelsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/triggers/config", a.TriggersConfigGetHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/triggers/config", a.TriggersConfigUpdateHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/triggers/control", a.TriggersControlHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/triggers/fire", a.TriggersFireHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/triggers/state", a.TriggersStateHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/triggers/reset", a.TriggersResetHandler).Methods(http.MethodPost)

	r.HandleFunc("/api/router/send", a.RouterSendHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/router/status", a.RouterStatusHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/router/default", a.RouterDefaultHandler).Methods(http.MethodGet)

	r.HandleFunc("/control", a.ControlSocketHandler)
	r.HandleFunc("/", a.DocSocketHandler)
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// serviceError maps business-rule and not-found errors to their HTTP
// shapes; anything else is an internal error.
func serviceError(w http.ResponseWriter, err error) {
	var rerr *resource.Error
	if errors.As(err, &rerr) {
		body := map[string]any{"error": rerr.Code, "message": rerr.Message}
		for k, v := range rerr.Payload {
			body[k] = v
		}
		jsonResponse(w, rerr.Status, body)
		return
	}
	var nf *document.SourceNotFoundError
	if errors.As(err, &nf) {
		errorResponse(w, http.StatusNotFound, nf.Error())
		return
	}
	log.Printf("Internal error: %v", err)
	errorResponse(w, http.StatusInternalServerError, "Internal error")
}

func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"active_docs":    a.hub.DocCount(),
		"active_clients": a.hub.ClientCount(),
		"known_docs":     len(a.docs.ListIDs()),
		"known_forms":    len(a.forms.ListIDs()),
		"known_panels":   len(a.buttons.ListIDs()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
