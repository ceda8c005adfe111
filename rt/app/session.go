package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gekko3d/particlelife/rt/core"
	"github.com/gekko3d/particlelife/rt/gpu"
	"github.com/google/uuid"
)

var (
	ErrInvalidOptions = errors.New("app: invalid session options")
	ErrLayoutMismatch = gpu.ErrLayoutMismatch
	ErrFrameSkipped   = errors.New("app: frame skipped")
	ErrTornDown       = errors.New("app: session torn down")
)

// Session drives one particle field on one device and surface. Frame and
// Resize may be called from different goroutines. They serialize on the
// session lock, so a resize lands between frames.
type Session struct {
	mu    sync.Mutex
	id    uuid.UUID
	state State
	opts  Options

	device  gpu.Device
	surface gpu.Surface
	format  gpu.TextureFormat

	store     *gpu.ParticleStore
	sim       *gpu.SimulationStage
	derive    *gpu.Derivation
	presenter gpu.Presenter

	timer    FrameTimer
	clock    Clock
	log      Logger
	metrics  *Metrics
	profiler *Profiler
	frames   uint64
}

// NewSession configures surface at width x height and builds every GPU
// resource of the pipeline. On error nothing built so far is leaked. The
// device and surface stay owned by the caller.
func NewSession(device gpu.Device, surface gpu.Surface, width, height int, opts Options) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: initial surface size %dx%d", ErrInvalidOptions, width, height)
	}
	if opts.QuadSize == 0 {
		opts.QuadSize = gpu.DefaultQuadSize
	}

	s := &Session{
		id:       uuid.New(),
		state:    StateUninitialized,
		opts:     opts,
		device:   device,
		surface:  surface,
		clock:    opts.Clock,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		profiler: NewProfiler(),
	}
	if s.clock == nil {
		s.clock = SystemClock()
	}
	if s.log == nil {
		s.log = nopLogger{}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}

	if err := s.build(width, height); err != nil {
		s.release()
		return nil, err
	}

	s.state = StateReady
	s.metrics.Particles.Set(float64(opts.Count))
	s.log.Infof("session %s ready: %d particles, %s on %s buffers, %s submit, %dx%d %s",
		s.id, opts.Count, opts.Presentation, s.derive.Layout(), opts.Submit, width, height, s.format)
	return s, nil
}

func (s *Session) build(width, height int) error {
	s.format = s.surface.PreferredFormat()
	if err := s.surface.Configure(uint32(width), uint32(height), s.format); err != nil {
		return fmt.Errorf("configure surface: %w", err)
	}

	var err error
	if s.store, err = gpu.NewParticleStore(s.device, s.opts.Count, s.opts.rng()); err != nil {
		return err
	}
	if s.sim, err = gpu.NewSimulationStage(s.device, s.opts.kernel(), s.store); err != nil {
		return err
	}
	if s.derive, err = gpu.NewDerivation(s.device, s.store, s.opts.layout()); err != nil {
		return err
	}
	if s.presenter, err = gpu.NewPresenter(s.device, s.opts.Presentation, s.derive, s.format, s.opts.QuadSize); err != nil {
		return err
	}
	return nil
}

// Frame advances the simulation one step and presents it. When the surface
// has no texture the frame is skipped: the returned error wraps
// ErrFrameSkipped, nothing is submitted and the time step is consumed.
func (s *Session) Frame() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateTornDown {
		return ErrTornDown
	}
	s.state = StateRenderingFrame
	defer func() { s.state = StateReady }()

	dt := s.timer.Tick(s.clock)
	s.metrics.FrameDelta.Observe(float64(dt))

	params := core.SimParams{DeltaTime: dt, Speed: s.opts.Speed, BoundaryForce: s.opts.BoundaryForce}
	if err := s.sim.Update(params); err != nil {
		return fmt.Errorf("update sim params: %w", err)
	}

	frame, err := s.surface.Acquire()
	if err != nil {
		s.metrics.FramesSkipped.Inc()
		s.log.Warnf("session %s: skipping frame %d: %v", s.id, s.frames, err)
		return fmt.Errorf("%w: %w", ErrFrameSkipped, err)
	}

	cmds, err := s.encode(frame.Target())
	if err != nil {
		frame.Discard()
		return err
	}

	err = s.profiler.Scope("submit", func() error {
		for i, cb := range cmds {
			if err := s.device.Submit(cb); err != nil {
				releaseCommands(cmds[i:])
				return fmt.Errorf("submit: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		frame.Discard()
		return err
	}
	frame.Present()

	s.frames++
	s.metrics.FramesRendered.Inc()
	if n := s.opts.StatsInterval; n > 0 && s.frames%uint64(n) == 0 && s.log.DebugEnabled() {
		s.profiler.SetCount("frames", int(s.frames))
		s.log.Debugf("session %s: %s", s.id, s.profiler.StatsString())
	}
	return nil
}

// encode records compute, copies and render in that order. Split mode
// closes the first command buffer after the copies. On error every encoder
// and command buffer created here is released.
func (s *Session) encode(target gpu.RenderTarget) (cmds []gpu.CommandBuffer, err error) {
	var enc gpu.CommandEncoder
	defer func() {
		if err == nil {
			return
		}
		if enc != nil {
			enc.Release()
		}
		releaseCommands(cmds)
		cmds = nil
	}()

	if enc, err = s.device.CreateCommandEncoder("ParticleFrame"); err != nil {
		enc = nil
		return nil, fmt.Errorf("command encoder: %w", err)
	}

	if err := s.profiler.Scope("simulate", func() error { return s.sim.Encode(enc) }); err != nil {
		return nil, fmt.Errorf("encode simulation: %w", err)
	}
	if err := s.profiler.Scope("derive", func() error { return s.derive.Encode(enc) }); err != nil {
		return nil, fmt.Errorf("encode derivation: %w", err)
	}

	if s.opts.Submit == SubmitSplit {
		cb, err := enc.Finish()
		if err != nil {
			return nil, fmt.Errorf("finish compute commands: %w", err)
		}
		cmds = append(cmds, cb)
		next, err := s.device.CreateCommandEncoder("ParticleRender")
		if err != nil {
			return cmds, fmt.Errorf("render command encoder: %w", err)
		}
		enc = next
	}

	err = s.profiler.Scope("present", func() error {
		pass, err := enc.BeginRenderPass(&gpu.RenderPassDescriptor{
			Label:  "ParticlePass",
			Target: target,
			Clear:  s.opts.Background,
		})
		if err != nil {
			return err
		}
		if err := s.presenter.Encode(pass); err != nil {
			return errors.Join(err, pass.End())
		}
		return pass.End()
	})
	if err != nil {
		return cmds, fmt.Errorf("encode presentation: %w", err)
	}

	cb, err := enc.Finish()
	if err != nil {
		return cmds, fmt.Errorf("finish frame commands: %w", err)
	}
	return append(cmds, cb), nil
}

func releaseCommands(cmds []gpu.CommandBuffer) {
	for _, cb := range cmds {
		cb.Release()
	}
}

// Resize reconfigures the surface. A zero-area size, as sent by a
// minimized window, is ignored. Particle and derived buffers are untouched.
func (s *Session) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateTornDown {
		return ErrTornDown
	}
	if width <= 0 || height <= 0 {
		s.log.Debugf("session %s: ignoring resize to %dx%d", s.id, width, height)
		return nil
	}

	s.state = StateResizing
	err := s.surface.Configure(uint32(width), uint32(height), s.format)
	s.state = StateReady
	if err != nil {
		return fmt.Errorf("resize to %dx%d: %w", width, height, err)
	}
	s.metrics.Resizes.Inc()
	s.log.Infof("session %s: resized to %dx%d", s.id, width, height)
	return nil
}

// Close releases every resource the session created. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTornDown {
		return
	}
	s.release()
	s.state = StateTornDown
	s.log.Infof("session %s: torn down after %d frames", s.id, s.frames)
}

func (s *Session) release() {
	if s.presenter != nil {
		s.presenter.Release()
		s.presenter = nil
	}
	if s.derive != nil {
		s.derive.Release()
		s.derive = nil
	}
	if s.sim != nil {
		s.sim.Release()
		s.sim = nil
	}
	if s.store != nil {
		s.store.Release()
		s.store = nil
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Frames is the number of presented frames.
func (s *Session) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *Session) Format() gpu.TextureFormat   { return s.format }
func (s *Session) Store() *gpu.ParticleStore   { return s.store }
func (s *Session) Derivation() *gpu.Derivation { return s.derive }
