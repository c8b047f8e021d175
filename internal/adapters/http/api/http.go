// Package api exposes the presenter over HTTP: marker editing, transport,
// page navigation, rendered pages, page event streams and metrics.
package api

import (
	"context"
	"errors"
	"image"
	"net/http"

	"github.com/okian/pagecue/internal/adapters/persistence"
	service "github.com/okian/pagecue/internal/app"
	"github.com/okian/pagecue/internal/domain/document"
	"github.com/okian/pagecue/internal/domain/markers"
	"github.com/okian/pagecue/internal/domain/model"
	"github.com/okian/pagecue/internal/domain/raster"
	"github.com/okian/pagecue/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the presenter implementation.
type Dependencies interface {
	MarkerEditor
	Transport
	Navigator
	DocumentLoader
	Viewer
	Resizer
	Feeder
}

// MarkerEditor edits and persists markers.
type MarkerEditor interface {
	Markers() []types.Marker
	AddMarker(ctx context.Context, position float64) (types.Marker, error)
	AddMarkerAtPosition(ctx context.Context) (types.Marker, error)
	ClearMarkers(ctx context.Context)
	DistributeMarkers(ctx context.Context) error
	MoveMarker(ctx context.Context, id model.MarkerID, position float64) (types.Marker, error)
	SaveMarkers(ctx context.Context, path string) (string, error)
	LoadMarkers(ctx context.Context, path string) (persistence.LoadResult, error)
}

// Transport controls the track and playback.
type Transport interface {
	LoadTrack(ctx context.Context, name string, length float64) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, seconds float64) error
}

// Navigator moves between pages.
type Navigator interface {
	AdvancePage(ctx context.Context) error
	RetreatPage(ctx context.Context) error
	GoToPage(ctx context.Context, page int) error
}

// DocumentLoader opens documents.
type DocumentLoader interface {
	LoadDocument(ctx context.Context, path string) error
}

// Viewer reads presenter state and rendered pages.
type Viewer interface {
	Snapshot() types.Snapshot
	Page() *image.NRGBA
	Preview() *image.NRGBA
}

// Server wires HTTP routes for the control API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	markersHandler  *MarkersHandler
	trackHandler    *TrackHandler
	pagesHandler    *PagesHandler
	documentHandler *DocumentHandler
	viewportHandler *ViewportHandler
	eventsHandler   *EventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		markersHandler:  NewMarkersHandler(deps),
		trackHandler:    NewTrackHandler(deps),
		pagesHandler:    NewPagesHandler(deps, deps),
		documentHandler: NewDocumentHandler(deps, deps),
		viewportHandler: NewViewportHandler(deps),
		eventsHandler:   NewEventsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/markers", MetricsMiddleware(s.markersHandler.HandleMarkers, "markers"))
	mux.HandleFunc("/markers/distribute", MetricsMiddleware(s.markersHandler.HandleDistribute, "markers_distribute"))
	mux.HandleFunc("/markers/save", MetricsMiddleware(s.markersHandler.HandleSave, "markers_save"))
	mux.HandleFunc("/markers/load", MetricsMiddleware(s.markersHandler.HandleLoad, "markers_load"))
	mux.HandleFunc("/markers/{id}", MetricsMiddleware(s.markersHandler.HandleMove, "markers_move"))

	mux.HandleFunc("/track", MetricsMiddleware(s.trackHandler.HandleLoad, "track"))
	mux.HandleFunc("/transport/play", MetricsMiddleware(s.trackHandler.HandlePlay, "transport_play"))
	mux.HandleFunc("/transport/pause", MetricsMiddleware(s.trackHandler.HandlePause, "transport_pause"))
	mux.HandleFunc("/transport/seek", MetricsMiddleware(s.trackHandler.HandleSeek, "transport_seek"))

	mux.HandleFunc("/pages/next", MetricsMiddleware(s.pagesHandler.HandleNext, "pages_next"))
	mux.HandleFunc("/pages/prev", MetricsMiddleware(s.pagesHandler.HandlePrev, "pages_prev"))
	mux.HandleFunc("/pages/goto", MetricsMiddleware(s.pagesHandler.HandleGoTo, "pages_goto"))
	mux.HandleFunc("/pages/current.png", MetricsMiddleware(s.pagesHandler.HandleCurrent, "pages_current"))
	mux.HandleFunc("/pages/preview.png", MetricsMiddleware(s.pagesHandler.HandlePreview, "pages_preview"))

	mux.HandleFunc("/document", MetricsMiddleware(s.documentHandler.HandleDocument, "document"))
	mux.HandleFunc("/viewport", MetricsMiddleware(s.viewportHandler.HandleViewport, "viewport"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleEvents, "events"))
}

// classify maps presenter errors to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, raster.ErrInvalidSize),
		errors.Is(err, markers.ErrInvalidRange),
		errors.Is(err, service.ErrInvalidTrack),
		errors.Is(err, service.ErrMarkerRange),
		errors.Is(err, service.ErrUnknownCmd),
		errors.Is(err, document.ErrPageRange):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, markers.ErrUnknownMarker), errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrNoDocument),
		errors.Is(err, service.ErrNoTrack),
		errors.Is(err, service.ErrNoMarkersPath):
		return http.StatusConflict, "conflict"
	case errors.Is(err, document.ErrLoad):
		return http.StatusUnprocessableEntity, "load_failed"
	case errors.Is(err, raster.ErrRender):
		return http.StatusInternalServerError, "render_failed"
	case errors.Is(err, persistence.ErrPersistenceIO):
		return http.StatusInternalServerError, "persistence_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
