package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/davinel000/highlighter-server/internal/document"
	"github.com/davinel000/highlighter-server/internal/markdown"
)

func (a *API) ListDocsHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{"docs": a.docs.ListIDs()})
}

func (a *API) ListSourcesHandler(w http.ResponseWriter, r *http.Request) {
	sources := a.docs.ListSources()
	if sources == nil {
		sources = []string{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{"sources": sources})
}

// TextHandler serves raw source text; markdown sources are rendered to HTML
// first.
func (a *API) TextHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	text, err := a.docs.ReadSourceText(name)
	if err != nil {
		serviceError(w, err)
		return
	}
	if markdown.IsMarkdownName(a.docs.SanitizeSourceName(name)) {
		rendered, err := markdown.Render(text)
		if err != nil {
			serviceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, rendered)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, text)
}

func (a *API) TokensHandler(w http.ResponseWriter, r *http.Request) {
	docID, ok := a.sanitizeDocID(r.URL.Query().Get("doc"))
	if !ok {
		errorResponse(w, http.StatusBadRequest, "Invalid doc id")
		return
	}
	state, err := a.docs.EnsureTokens(docID, r.URL.Query().Get("name"))
	if err != nil {
		serviceError(w, err)
		return
	}
	tokens := state.Tokens
	if tokens == nil {
		tokens = []string{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{"docId": docID, "tokens": tokens})
}

func (a *API) StateHandler(w http.ResponseWriter, r *http.Request) {
	docID, ok := a.sanitizeDocID(r.URL.Query().Get("doc"))
	if !ok {
		errorResponse(w, http.StatusBadRequest, "Invalid doc id")
		return
	}
	state, err := a.docs.EnsureTokens(docID, r.URL.Query().Get("name"))
	if err != nil {
		serviceError(w, err)
		return
	}
	ranges := document.RangesFromVotes(state.Votes)
	if ranges == nil {
		ranges = []document.Range{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"docId":      docID,
		"updated":    state.Updated,
		"tokens_len": len(state.Tokens),
		"ranges":     ranges,
	})
}

func (a *API) MyRangesHandler(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client")
	if clientID == "" {
		errorResponse(w, http.StatusBadRequest, "Missing client id")
		return
	}
	docID, ok := a.sanitizeDocID(r.URL.Query().Get("doc"))
	if !ok {
		errorResponse(w, http.StatusBadRequest, "Invalid doc id")
		return
	}
	state, err := a.docs.EnsureTokens(docID, "")
	if err != nil {
		serviceError(w, err)
		return
	}
	ranges := document.ClientRanges(state.Tokens, state.Votes, clientID)
	if ranges == nil {
		ranges = []document.Range{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{"docId": docID, "ranges": ranges})
}

func (a *API) PhrasesHandler(w http.ResponseWriter, r *http.Request) {
	docID, ok := a.sanitizeDocID(r.URL.Query().Get("doc"))
	if !ok {
		errorResponse(w, http.StatusBadRequest, "Invalid doc id")
		return
	}
	state, err := a.docs.EnsureTokens(docID, r.URL.Query().Get("name"))
	if err != nil {
		serviceError(w, err)
		return
	}
	phrases := document.PhrasesAggregated(state.Tokens, state.Votes)
	if phrases == nil {
		phrases = []document.Phrase{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"docId":   docID,
		"updated": state.Updated,
		"phrases": phrases,
	})
}

// ControlHandler toggles the document lock flag and notifies subscribers.
func (a *API) ControlHandler(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	if action != "lock" && action != "unlock" {
		errorResponse(w, http.StatusBadRequest, "action must be lock or unlock")
		return
	}
	docID, ok := a.sanitizeDocID(r.URL.Query().Get("doc"))
	if !ok {
		errorResponse(w, http.StatusBadRequest, "Invalid doc id")
		return
	}
	a.docs.SetLocked(docID, action == "lock")
	a.hub.Broadcast(docID, map[string]any{"type": "control", "action": action, "docId": docID})
	jsonResponse(w, http.StatusOK, map[string]any{"ok": true, "docId": docID, "locked": a.docs.IsLocked(docID)})
}

func (a *API) ClearHandler(w http.ResponseWriter, r *http.Request) {
	docID, ok := a.sanitizeDocID(r.URL.Query().Get("doc"))
	if !ok {
		errorResponse(w, http.StatusBadRequest, "Invalid doc id")
		return
	}
	if _, err := a.docs.EnsureTokens(docID, r.URL.Query().Get("name")); err != nil {
		serviceError(w, err)
		return
	}
	if _, err := a.docs.ClearVotes(docID); err != nil {
		serviceError(w, err)
		return
	}
	a.hub.Broadcast(docID, map[string]any{"type": "state_updated", "docId": docID})
	jsonResponse(w, http.StatusOK, map[string]any{"ok": true, "docId": docID, "cleared": "votes"})
}

func (a *API) ResetHandler(w http.ResponseWriter, r *http.Request) {
	docID, ok := a.sanitizeDocID(r.URL.Query().Get("doc"))
	if !ok {
		errorResponse(w, http.StatusBadRequest, "Invalid doc id")
		return
	}
	state, err := a.docs.Retokenize(docID, r.URL.Query().Get("name"))
	if err != nil {
		serviceError(w, err)
		return
	}
	a.hub.Broadcast(docID, map[string]any{"type": "state_updated", "docId": docID})
	jsonResponse(w, http.StatusOK, map[string]any{
		"ok":         true,
		"docId":      docID,
		"reset":      len(state.Tokens),
		"sourceName": state.SourceName,
	})
}

// ExportHandler dumps the full document snapshot, either inline JSON or as
// a downloadable single-line jsonl file written next to the snapshot.
func (a *API) ExportHandler(w http.ResponseWriter, r *http.Request) {
	docID, ok := a.sanitizeDocID(r.URL.Query().Get("doc"))
	if !ok {
		errorResponse(w, http.StatusBadRequest, "Invalid doc id")
		return
	}
	state, err := a.docs.EnsureTokens(docID, "")
	if err != nil {
		serviceError(w, err)
		return
	}
	payload := map[string]any{
		"docId":      docID,
		"locked":     a.docs.IsLocked(docID),
		"tokens":     state.Tokens,
		"votes":      state.Votes,
		"updated":    state.Updated,
		"sourceName": state.SourceName,
	}

	switch strings.ToLower(r.URL.Query().Get("fmt")) {
	case "", "json":
		jsonResponse(w, http.StatusOK, payload)
	case "jsonl":
		line, err := json.Marshal(payload)
		if err != nil {
			serviceError(w, err)
			return
		}
		line = append(line, '\n')
		outName := "state_" + docID + ".jsonl"
		if err := os.WriteFile(a.docs.ExportPath(outName), line, 0644); err != nil {
			serviceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="`+outName+`"`)
		w.Write(line)
	default:
		errorResponse(w, http.StatusBadRequest, "fmt must be json or jsonl")
	}
}
