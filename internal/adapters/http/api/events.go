package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/pagecue/internal/domain/model"
)

const keepAliveInterval = 15 * time.Second

// Feeder streams page events.
type Feeder interface {
	Feed(ctx context.Context) (<-chan model.PageEvent, func())
}

// EventsHandler streams page events as server-sent events.
type EventsHandler struct {
	deps Feeder
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Feeder) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleEvents handles GET /events. Each page command is sent as a "page"
// event with a JSON body until the client goes away.
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	rc := http.NewResponseController(w)
	// The server write timeout would cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	events, cancel := h.deps.Feed(r.Context())
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: page\ndata: %s\n\n", data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
