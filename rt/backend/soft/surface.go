package soft

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gekko3d/particlelife/rt/gpu"
)

var (
	// ErrAcquireFailed is returned by Acquire after FailNextAcquire.
	ErrAcquireFailed = errors.New("soft: surface texture unavailable")
	// ErrNotConfigured is returned by Acquire before the first Configure.
	ErrNotConfigured = errors.New("soft: surface not configured")
)

// Surface is an in-memory swapchain with a single image in flight.
type Surface struct {
	mu         sync.Mutex
	formats    []gpu.TextureFormat
	config     gpu.SurfaceConfiguration
	configured bool
	failNext   error
	inFlight   bool
	presented  *image.RGBA
	presents   int
	configures int
}

// NewSurface offers formats in order. With none, it offers BGRA8Unorm and
// its sRGB variant, as a typical desktop swapchain does.
func NewSurface(formats ...gpu.TextureFormat) *Surface {
	if len(formats) == 0 {
		formats = []gpu.TextureFormat{gpu.TextureFormatBGRA8Unorm, gpu.TextureFormatBGRA8UnormSrgb}
	}
	return &Surface{formats: formats}
}

// PreferredFormat picks the first sRGB format, else the first offered.
func (s *Surface) PreferredFormat() gpu.TextureFormat {
	for _, f := range s.formats {
		if f.IsSrgb() {
			return f
		}
	}
	return s.formats[0]
}

func (s *Surface) Configure(width, height uint32, format gpu.TextureFormat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if width == 0 || height == 0 {
		return fmt.Errorf("%w: surface size %dx%d", gpu.ErrValidation, width, height)
	}
	supported := false
	for _, f := range s.formats {
		supported = supported || f == format
	}
	if !supported {
		return fmt.Errorf("%w: surface does not offer %s", gpu.ErrValidation, format)
	}
	s.config = gpu.SurfaceConfiguration{Width: width, Height: height, Format: format}
	s.configured = true
	s.configures++
	return nil
}

func (s *Surface) Configuration() gpu.SurfaceConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// FailNextAcquire makes the next Acquire return err, or ErrAcquireFailed
// when err is nil.
func (s *Surface) FailNextAcquire(err error) {
	if err == nil {
		err = ErrAcquireFailed
	}
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

func (s *Surface) Acquire() (gpu.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.configured {
		return nil, ErrNotConfigured
	}
	if err := s.failNext; err != nil {
		s.failNext = nil
		return nil, err
	}
	if s.inFlight {
		return nil, fmt.Errorf("%w: previous frame not presented", gpu.ErrValidation)
	}
	s.inFlight = true
	tex := NewTexture(int(s.config.Width), int(s.config.Height), s.config.Format)
	return &Frame{surface: s, tex: tex}, nil
}

// Presented returns the last presented image, or nil.
func (s *Surface) Presented() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}

func (s *Surface) PresentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

func (s *Surface) ConfigureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configures
}

func (s *Surface) Release() {}

type Frame struct {
	surface *Surface
	tex     *Texture
	done    bool
}

func (f *Frame) Target() gpu.RenderTarget { return f.tex }

func (f *Frame) Present() {
	if f.done {
		return
	}
	f.done = true
	s := f.surface
	s.mu.Lock()
	s.inFlight = false
	s.presented = f.tex.img
	s.presents++
	s.mu.Unlock()
}

func (f *Frame) Discard() {
	if f.done {
		return
	}
	f.done = true
	f.surface.mu.Lock()
	f.surface.inFlight = false
	f.surface.mu.Unlock()
}
