package api

import (
	"regexp"
	"strings"

	"github.com/davinel000/highlighter-server/internal/buttons"
	"github.com/davinel000/highlighter-server/internal/forms"
)

var (
	docIDRe   = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)
	shortIDRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)
	idCleanRe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
)

// sanitizeDocID validates a document id. Unlike form and panel ids, an
// invalid document id is rejected outright.
func (a *API) sanitizeDocID(raw string) (string, bool) {
	docID := raw
	if docID == "" {
		docID = a.docs.DefaultDoc()
	}
	if !docIDRe.MatchString(docID) {
		return "", false
	}
	return docID, true
}

// sanitizeShortID strips disallowed characters, caps the length, and falls
// back to the default when nothing survives.
func sanitizeShortID(raw, fallback string) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		return fallback
	}
	if shortIDRe.MatchString(id) {
		return id
	}
	cleaned := idCleanRe.ReplaceAllString(id, "")
	if len(cleaned) > 64 {
		cleaned = cleaned[:64]
	}
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

func sanitizeFormID(raw string) string {
	return sanitizeShortID(raw, forms.DefaultFormID)
}

func sanitizePanelID(raw string) string {
	return sanitizeShortID(raw, buttons.DefaultPanelID)
}
