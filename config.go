package particlelife

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/gekko3d/particlelife/rt/app"
	"github.com/gekko3d/particlelife/rt/core"
	"github.com/gekko3d/particlelife/rt/gpu"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Window       WindowConfig       `yaml:"window"`
	Simulation   SimulationConfig   `yaml:"simulation"`
	Presentation PresentationConfig `yaml:"presentation"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Log          LogConfig          `yaml:"log"`

	// Derived values computed after loading.
	Derived DerivedConfig `yaml:"-"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type SimulationConfig struct {
	Count         int     `yaml:"count"`
	Speed         float32 `yaml:"speed"`
	BoundaryForce float32 `yaml:"boundary_force"`
	Seed          int64   `yaml:"seed"`
}

type PresentationConfig struct {
	Strategy   string     `yaml:"strategy"`
	Layout     string     `yaml:"layout"`
	QuadSize   float32    `yaml:"quad_size"`
	Submit     string     `yaml:"submit"`
	Background [4]float64 `yaml:"background"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Debug         bool `yaml:"debug"`
	StatsInterval int  `yaml:"stats_interval"`
}

type DerivedConfig struct {
	Strategy core.PresentationKind
	Layout   *core.Layout
	Submit   app.SubmitMode
}

// Load reads the embedded defaults and overlays the file at path, if any.
// Only keys present in the file override defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) computeDerived() error {
	strategy, err := core.ParsePresentationKind(c.Presentation.Strategy)
	if err != nil {
		return fmt.Errorf("%w: presentation.strategy: %v", ErrInvalidConfig, err)
	}
	c.Derived.Strategy = strategy

	c.Derived.Layout = nil
	if c.Presentation.Layout != "" {
		layout, err := core.ParseLayout(c.Presentation.Layout)
		if err != nil {
			return fmt.Errorf("%w: presentation.layout: %v", ErrInvalidConfig, err)
		}
		c.Derived.Layout = &layout
	}

	submit, err := app.ParseSubmitMode(c.Presentation.Submit)
	if err != nil {
		return fmt.Errorf("%w: presentation.submit: %v", ErrInvalidConfig, err)
	}
	c.Derived.Submit = submit
	return nil
}

// Validate checks the window and the session options the config maps to.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if c.Log.StatsInterval < 0 {
		return fmt.Errorf("%w: log.stats_interval must not be negative", ErrInvalidConfig)
	}
	if err := c.SessionOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// SessionOptions maps the config onto app.Options. Logger, metrics and
// clock are left for the host to set.
func (c *Config) SessionOptions() app.Options {
	opts := app.DefaultOptions()
	opts.Count = c.Simulation.Count
	opts.Speed = c.Simulation.Speed
	opts.BoundaryForce = c.Simulation.BoundaryForce
	opts.Seed = c.Simulation.Seed
	opts.Presentation = c.Derived.Strategy
	opts.Layout = c.Derived.Layout
	opts.QuadSize = c.Presentation.QuadSize
	opts.Submit = c.Derived.Submit
	bg := c.Presentation.Background
	opts.Background = gpu.Color{R: bg[0], G: bg[1], B: bg[2], A: bg[3]}
	opts.StatsInterval = c.Log.StatsInterval
	return opts
}

// WriteYAML saves the effective config.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
