package api

import (
	"net/http"

	"github.com/okian/pagecue/internal/adapters/persistence"
	"github.com/okian/pagecue/internal/domain/types"
)

// MarkersHandler handles marker requests.
type MarkersHandler struct {
	deps MarkerEditor
}

// NewMarkersHandler creates a new markers handler.
func NewMarkersHandler(deps MarkerEditor) *MarkersHandler {
	return &MarkersHandler{deps: deps}
}

// addMarkerRequest places a marker. Without a position the marker goes at the
// playback position.
type addMarkerRequest struct {
	Position *float64 `json:"position"`
}

type moveMarkerRequest struct {
	Position *float64 `json:"position"`
}

type pathRequest struct {
	Path string `json:"path"`
}

type saveResponse struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

type droppedLine struct {
	Line     int     `json:"line"`
	Text     string  `json:"text"`
	Position float64 `json:"position"`
}

type loadResponse struct {
	Markers []types.Marker `json:"markers"`
	Dropped []droppedLine  `json:"dropped"`
}

// HandleMarkers handles GET (list), POST (add) and DELETE (clear) /markers.
func (h *MarkersHandler) HandleMarkers(w http.ResponseWriter, r *http.Request) {
	const op = "api.markers"
	if !allow(w, r, http.MethodGet, http.MethodPost, http.MethodDelete) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Markers())
	case http.MethodDelete:
		h.deps.ClearMarkers(r.Context())
		writeJSON(w, http.StatusOK, h.deps.Markers())
	case http.MethodPost:
		var req addMarkerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
			return
		}
		var (
			m   types.Marker
			err error
		)
		if req.Position == nil {
			m, err = h.deps.AddMarkerAtPosition(r.Context())
		} else {
			m, err = h.deps.AddMarker(r.Context(), *req.Position)
		}
		if err != nil {
			writeFailure(w, op, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

// HandleMove handles PUT /markers/{id}: a whole drag to the given position.
func (h *MarkersHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	const op = "api.move_marker"
	if !allow(w, r, http.MethodPut) {
		return
	}
	id, err := markerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	var req moveMarkerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	if req.Position == nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	m, err := h.deps.MoveMarker(r.Context(), id, *req.Position)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleDistribute handles POST /markers/distribute.
func (h *MarkersHandler) HandleDistribute(w http.ResponseWriter, r *http.Request) {
	const op = "api.distribute_markers"
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.deps.DistributeMarkers(r.Context()); err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Markers())
}

// HandleSave handles POST /markers/save with an optional {"path": ...}.
func (h *MarkersHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_markers"
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req pathRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	path, err := h.deps.SaveMarkers(r.Context(), req.Path)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Path: path, Count: len(h.deps.Markers())})
}

// HandleLoad handles POST /markers/load with an optional {"path": ...}.
func (h *MarkersHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	const op = "api.load_markers"
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req pathRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	res, err := h.deps.LoadMarkers(r.Context(), req.Path)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, loadResponse{Markers: h.deps.Markers(), Dropped: dropped(res)})
}

func dropped(res persistence.LoadResult) []droppedLine {
	out := make([]droppedLine, 0, len(res.Dropped))
	for _, d := range res.Dropped {
		out = append(out, droppedLine{Line: d.Line, Text: d.Text, Position: d.Position})
	}
	return out
}
