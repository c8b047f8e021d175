package api

import (
	"fmt"
	"image"
	"net/http"

	"github.com/okian/pagecue/internal/domain/types"
)

// PagesHandler handles page navigation and rendered page requests.
type PagesHandler struct {
	nav  Navigator
	view Viewer
}

// NewPagesHandler creates a new pages handler.
func NewPagesHandler(nav Navigator, view Viewer) *PagesHandler {
	return &PagesHandler{nav: nav, view: view}
}

type gotoRequest struct {
	Page *int `json:"page"`
}

// HandleNext handles POST /pages/next.
func (h *PagesHandler) HandleNext(w http.ResponseWriter, r *http.Request) {
	const op = "api.next_page"
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.nav.AdvancePage(r.Context()); err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, h.document())
}

// HandlePrev handles POST /pages/prev.
func (h *PagesHandler) HandlePrev(w http.ResponseWriter, r *http.Request) {
	const op = "api.prev_page"
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.nav.RetreatPage(r.Context()); err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, h.document())
}

// HandleGoTo handles POST /pages/goto {"page": index}.
func (h *PagesHandler) HandleGoTo(w http.ResponseWriter, r *http.Request) {
	const op = "api.goto_page"
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req gotoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	if req.Page == nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.nav.GoToPage(r.Context(), *req.Page); err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, h.document())
}

// HandleCurrent handles GET /pages/current.png.
func (h *PagesHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	h.serveImage(w, r, "api.current_page", h.view.Page())
}

// HandlePreview handles GET /pages/preview.png. It is 404 on the last page.
func (h *PagesHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	h.serveImage(w, r, "api.preview_page", h.view.Preview())
}

func (h *PagesHandler) serveImage(w http.ResponseWriter, r *http.Request, op string, img *image.NRGBA) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	if img == nil {
		writeFailure(w, op, fmt.Errorf("%w: %w", ErrNotFound, ErrNoContent))
		return
	}
	writePNG(w, img)
}

func (h *PagesHandler) document() *types.Document {
	return h.view.Snapshot().Document
}
