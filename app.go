package particlelife

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gekko3d/particlelife/rt/app"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App runs a session inside a window until the window closes or the
// context is cancelled.
type App struct {
	cfg      *Config
	log      Logger
	window   Window
	session  *app.Session
	registry *prometheus.Registry
	server   *http.Server

	closeOnce sync.Once
	serveErr  chan error
}

// Run polls window events and renders frames. Skipped frames are logged
// by the session and the loop carries on. Any other frame error ends Run.
func (a *App) Run(ctx context.Context) error {
	a.serveMetrics()

	a.log.Infof("running session %s", a.session.ID())
	for !a.window.ShouldClose() {
		select {
		case <-ctx.Done():
			a.log.Infof("stopping: %v", context.Cause(ctx))
			return nil
		case err := <-a.serveErr:
			return err
		default:
		}

		a.window.PollEvents()
		if err := a.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step renders one frame. A skipped frame is not an error.
func (a *App) Step() error {
	err := a.session.Frame()
	if errors.Is(err, app.ErrFrameSkipped) {
		return nil
	}
	return err
}

func (a *App) resize(width, height int) {
	if err := a.session.Resize(width, height); err != nil {
		a.log.Errorf("resize to %dx%d: %v", width, height, err)
	}
}

func (a *App) serveMetrics() {
	if a.cfg.Metrics.Addr == "" || a.server != nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.MetricsHandler())
	a.server = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.log.Infof("serving metrics on %s/metrics", a.cfg.Metrics.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Errorf("metrics server: %v", err)
			a.serveErr <- err
		}
	}()
}

// MetricsHandler exposes the app's registry.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

func (a *App) Session() *app.Session { return a.session }
func (a *App) Config() *Config       { return a.cfg }

// Close tears down the session and stops the metrics server. The window
// and device are left to their owner.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := a.server.Shutdown(ctx); err != nil {
				a.log.Warnf("metrics server shutdown: %v", err)
			}
		}
		a.session.Close()
	})
}
