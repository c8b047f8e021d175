package api

import (
	"context"
	"net/http"

	"github.com/okian/pagecue/internal/domain/model"
)

// Resizer changes render viewports.
type Resizer interface {
	Resize(ctx context.Context, size model.Size) error
	ResizePreview(ctx context.Context, size model.Size) error
}

// ViewportHandler handles viewport requests.
type ViewportHandler struct {
	deps Resizer
}

// NewViewportHandler creates a new viewport handler.
func NewViewportHandler(deps Resizer) *ViewportHandler {
	return &ViewportHandler{deps: deps}
}

type sizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type viewportRequest struct {
	Main    *sizeRequest `json:"main"`
	Preview *sizeRequest `json:"preview"`
}

// HandleViewport handles PUT /viewport {"main": {...}, "preview": {...}}.
// Either size may be omitted.
func (h *ViewportHandler) HandleViewport(w http.ResponseWriter, r *http.Request) {
	const op = "api.viewport"
	if !allow(w, r, http.MethodPut) {
		return
	}
	var req viewportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	if req.Main == nil && req.Preview == nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if req.Main != nil {
		if err := h.deps.Resize(r.Context(), model.Size{Width: req.Main.Width, Height: req.Main.Height}); err != nil {
			writeFailure(w, op, err)
			return
		}
	}
	if req.Preview != nil {
		if err := h.deps.ResizePreview(r.Context(), model.Size{Width: req.Preview.Width, Height: req.Preview.Height}); err != nil {
			writeFailure(w, op, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "resized"})
}
