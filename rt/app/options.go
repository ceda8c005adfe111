package app

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gekko3d/particlelife/rt/core"
	"github.com/gekko3d/particlelife/rt/gpu"
)

// SubmitMode selects how a frame's command buffers reach the queue.
type SubmitMode int

const (
	// SubmitSingle submits compute, copies and render in one command buffer.
	SubmitSingle SubmitMode = iota
	// SubmitSplit submits compute and copies first and the render pass second.
	SubmitSplit
)

func (m SubmitMode) String() string {
	switch m {
	case SubmitSingle:
		return "single"
	case SubmitSplit:
		return "split"
	}
	return fmt.Sprintf("SubmitMode(%d)", int(m))
}

func ParseSubmitMode(s string) (SubmitMode, error) {
	switch s {
	case "single", "":
		return SubmitSingle, nil
	case "split":
		return SubmitSplit, nil
	}
	return 0, fmt.Errorf("unknown submit mode %q", s)
}

// Options configure a Session. DefaultOptions gives a working set.
type Options struct {
	Count         int
	Speed         float32
	BoundaryForce float32
	Presentation  core.PresentationKind
	// Layout overrides the derived layout. Nil uses the one Presentation needs.
	Layout *core.Layout
	// Kernel replaces the simulation entry point. Nil uses gpu.DefaultKernel.
	Kernel *gpu.Kernel
	// Seed fixes the initial field. Zero draws a random one.
	Seed       int64
	QuadSize   float32
	Submit     SubmitMode
	// Background is the clear color, used as given. DefaultOptions sets gpu.Background.
	Background gpu.Color

	Logger  Logger
	Metrics *Metrics
	Clock   Clock
	// StatsInterval logs profiler stats every n frames at debug level. Zero disables.
	StatsInterval int
}

func DefaultOptions() Options {
	return Options{
		Count:         core.DefaultCount,
		Speed:         1,
		BoundaryForce: 1,
		Presentation:  core.PresentPoints,
		QuadSize:      gpu.DefaultQuadSize,
		Submit:        SubmitSingle,
		Background:    gpu.Background,
	}
}

// Validate reports the first invalid field.
func (o Options) Validate() error {
	if o.Count <= 0 {
		return fmt.Errorf("%w: particle count must be positive, got %d", ErrInvalidOptions, o.Count)
	}
	if !finite(o.Speed) || !finite(o.BoundaryForce) || !finite(o.QuadSize) {
		return fmt.Errorf("%w: speed, boundary force and quad size must be finite", ErrInvalidOptions)
	}
	if o.QuadSize < 0 {
		return fmt.Errorf("%w: quad size must not be negative, got %g", ErrInvalidOptions, o.QuadSize)
	}
	if o.Presentation != core.PresentPoints && o.Presentation != core.PresentInstancedQuads {
		return fmt.Errorf("%w: unknown presentation strategy %v", ErrInvalidOptions, o.Presentation)
	}
	if o.Submit != SubmitSingle && o.Submit != SubmitSplit {
		return fmt.Errorf("%w: unknown submit mode %v", ErrInvalidOptions, o.Submit)
	}
	if o.Layout != nil && *o.Layout != o.Presentation.Layout() {
		return fmt.Errorf("%w: %s cannot draw from %s buffers", ErrLayoutMismatch, o.Presentation, *o.Layout)
	}
	return nil
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (o Options) layout() core.Layout {
	if o.Layout != nil {
		return *o.Layout
	}
	return o.Presentation.Layout()
}

func (o Options) kernel() gpu.Kernel {
	if o.Kernel != nil {
		return *o.Kernel
	}
	return gpu.DefaultKernel()
}

func (o Options) rng() *rand.Rand {
	if o.Seed == 0 {
		return nil
	}
	return rand.New(rand.NewSource(o.Seed))
}
