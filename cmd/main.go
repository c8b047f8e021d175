package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/pagecue/internal/adapters/http/api"
	"github.com/okian/pagecue/internal/adapters/persistence"
	"github.com/okian/pagecue/internal/adapters/renderer/imagedir"
	app "github.com/okian/pagecue/internal/app"
	"github.com/okian/pagecue/internal/config"
	"github.com/okian/pagecue/internal/domain/model"
	"github.com/okian/pagecue/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Our registry carries its own system gauges.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		// Logger isn't available yet.
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		loggerInstance.Error(ctx, "failed to load config", logger.Error(err))
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to create presenter", logger.Error(err))
		return
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start presenter", logger.Error(err))
		return
	}
	defer svc.Stop()

	bootstrap(ctx, svc, cfg, loggerInstance)

	srv := newHTTPServer(ctx, cfg, svc)

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newService builds the presenter from configuration.
func newService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	opener := imagedir.New(
		imagedir.WithSourceDPI(cfg.SourceDPI),
		imagedir.WithLogger(log.Named("renderer")),
	)
	return app.New(
		app.WithLogger(log),
		app.WithOpener(opener),
		app.WithTickInterval(cfg.TickInterval()),
		app.WithCacheCapacity(cfg.CacheCapacity),
		app.WithViewport(model.Size{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight}),
		app.WithPreviewSize(model.Size{Width: cfg.PreviewWidth, Height: cfg.PreviewHeight}),
		app.WithBaseDPI(cfg.BaseDPI),
		app.WithPolicy(cfg.Policy()),
		app.WithMarkersPath(cfg.MarkersPath),
		app.WithFeedCapacity(cfg.FeedCapacity),
	)
}

// bootstrap opens the configured document and track and loads their markers.
// Failures are logged; the presenter stays usable over HTTP.
func bootstrap(ctx context.Context, svc *app.Service, cfg *config.Config, log logger.Logger) {
	if cfg.DocumentPath != "" {
		if err := svc.LoadDocument(ctx, cfg.DocumentPath); err != nil {
			log.Warn(ctx, "startup document not loaded", logger.String("path", cfg.DocumentPath), logger.Error(err))
		}
	}
	if cfg.TrackLength <= 0 {
		return
	}
	if err := svc.LoadTrack(ctx, cfg.TrackName, cfg.TrackLength); err != nil {
		log.Warn(ctx, "startup track not loaded", logger.Error(err))
		return
	}
	if cfg.MarkersPath == "" && cfg.DocumentPath == "" {
		return
	}
	if _, err := os.Stat(markersFile(cfg)); err == nil {
		if _, err := svc.LoadMarkers(ctx, ""); err != nil {
			log.Warn(ctx, "startup markers not loaded", logger.Error(err))
		}
	}
	if cfg.WatchMarkers {
		if err := svc.WatchMarkers(ctx, ""); err != nil {
			log.Warn(ctx, "markers file not watched", logger.Error(err))
		}
	}
}

func markersFile(cfg *config.Config) string {
	if cfg.MarkersPath != "" {
		return cfg.MarkersPath
	}
	return persistence.DefaultPath(cfg.DocumentPath)
}

// newHTTPServer registers the control API on a fresh mux.
func newHTTPServer(ctx context.Context, cfg *config.Config, svc *app.Service) *http.Server {
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
