package api

import (
	"net/http"
	"strings"
)

// TrackHandler handles track and transport requests.
type TrackHandler struct {
	deps Transport
}

// NewTrackHandler creates a new track handler.
func NewTrackHandler(deps Transport) *TrackHandler {
	return &TrackHandler{deps: deps}
}

type trackRequest struct {
	Name   string  `json:"name"`
	Length float64 `json:"length"`
}

type seekRequest struct {
	Position *float64 `json:"position"`
}

// HandleLoad handles POST /track {"name", "length"}.
func (h *TrackHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	const op = "api.load_track"
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req trackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		req.Name = "track"
	}
	if err := h.deps.LoadTrack(r.Context(), req.Name, req.Length); err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "loaded"})
}

// HandlePlay handles POST /transport/play.
func (h *TrackHandler) HandlePlay(w http.ResponseWriter, r *http.Request) {
	const op = "api.play"
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.deps.Play(r.Context()); err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "playing"})
}

// HandlePause handles POST /transport/pause.
func (h *TrackHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	const op = "api.pause"
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.deps.Pause(r.Context()); err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "paused"})
}

// HandleSeek handles POST /transport/seek {"position": seconds}.
func (h *TrackHandler) HandleSeek(w http.ResponseWriter, r *http.Request) {
	const op = "api.seek"
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req seekRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	if req.Position == nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.Seek(r.Context(), *req.Position); err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "seeked"})
}
