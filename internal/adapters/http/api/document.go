package api

import (
	"net/http"
	"strings"
)

// DocumentHandler handles document requests.
type DocumentHandler struct {
	loader DocumentLoader
	view   Viewer
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(loader DocumentLoader, view Viewer) *DocumentHandler {
	return &DocumentHandler{loader: loader, view: view}
}

// HandleDocument handles GET /document (presenter snapshot) and
// POST /document {"path": ...}.
func (h *DocumentHandler) HandleDocument(w http.ResponseWriter, r *http.Request) {
	const op = "api.document"
	if !allow(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, h.view.Snapshot())
		return
	}
	var req pathRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.loader.LoadDocument(r.Context(), req.Path); err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view.Snapshot())
}
