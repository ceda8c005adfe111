package particlelife

import (
	"errors"
	"fmt"

	"github.com/gekko3d/particlelife/rt/app"
	"github.com/gekko3d/particlelife/rt/gpu"
	"github.com/prometheus/client_golang/prometheus"
)

type AppBuilder struct {
	cfg      *Config
	log      Logger
	window   Window
	device   gpu.Device
	surface  gpu.Surface
	clock    app.Clock
	registry *prometheus.Registry
}

func NewAppBuilder() *AppBuilder {
	return &AppBuilder{}
}

func (b *AppBuilder) UseConfig(cfg *Config) *AppBuilder {
	b.cfg = cfg
	return b
}

func (b *AppBuilder) UseLogger(log Logger) *AppBuilder {
	b.log = log
	return b
}

func (b *AppBuilder) UseWindow(w Window) *AppBuilder {
	b.window = w
	return b
}

func (b *AppBuilder) UseBackend(device gpu.Device, surface gpu.Surface) *AppBuilder {
	b.device = device
	b.surface = surface
	return b
}

func (b *AppBuilder) UseClock(c app.Clock) *AppBuilder {
	b.clock = c
	return b
}

func (b *AppBuilder) UseRegistry(reg *prometheus.Registry) *AppBuilder {
	b.registry = reg
	return b
}

// Build creates the session at the window's framebuffer size and routes
// window resizes to it.
func (b *AppBuilder) Build() (*App, error) {
	if b.window == nil {
		return nil, errors.New("app builder: no window")
	}
	if b.device == nil || b.surface == nil {
		return nil, errors.New("app builder: no device or surface")
	}

	cfg := b.cfg
	if cfg == nil {
		var err error
		if cfg, err = Load(""); err != nil {
			return nil, err
		}
	}
	log := b.log
	if log == nil {
		log = NewDefaultLogger("particlelife", cfg.Log.Debug)
	}
	reg := b.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	opts := cfg.SessionOptions()
	opts.Logger = log
	opts.Metrics = app.NewMetrics(reg)
	opts.Clock = b.clock

	width, height := b.window.FramebufferSize()
	session, err := app.NewSession(b.device, b.surface, width, height, opts)
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		window:   b.window,
		session:  session,
		registry: reg,
		serveErr: make(chan error, 1),
	}
	b.window.OnResize(a.resize)
	return a, nil
}
