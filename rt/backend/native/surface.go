package native

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/particlelife/rt/gpu"
)

// Surface implements gpu.Surface over a wgpu surface with Fifo present mode.
type Surface struct {
	surface *wgpu.Surface
	adapter *wgpu.Adapter
	device  *wgpu.Device
	caps    wgpu.SurfaceCapabilities
	config  *wgpu.SurfaceConfiguration
}

func newSurface(surface *wgpu.Surface, adapter *wgpu.Adapter, device *wgpu.Device) *Surface {
	return &Surface{
		surface: surface,
		adapter: adapter,
		device:  device,
		caps:    surface.GetCapabilities(adapter),
	}
}

// PreferredFormat picks the first sRGB format the surface offers, else the first.
func (s *Surface) PreferredFormat() gpu.TextureFormat {
	for _, f := range s.caps.Formats {
		if g := fromTextureFormat(f); g.IsSrgb() {
			return g
		}
	}
	if len(s.caps.Formats) == 0 {
		return gpu.TextureFormatUndefined
	}
	return fromTextureFormat(s.caps.Formats[0])
}

func (s *Surface) Configure(width, height uint32, format gpu.TextureFormat) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: surface size %dx%d", gpu.ErrValidation, width, height)
	}
	if len(s.caps.AlphaModes) == 0 {
		return fmt.Errorf("%w: surface reports no alpha modes", gpu.ErrValidation)
	}
	s.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      textureFormat(format),
		Width:       width,
		Height:      height,
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   s.caps.AlphaModes[0],
	}
	s.surface.Configure(s.adapter, s.device, s.config)
	return nil
}

func (s *Surface) Configuration() gpu.SurfaceConfiguration {
	if s.config == nil {
		return gpu.SurfaceConfiguration{}
	}
	return gpu.SurfaceConfiguration{
		Width:  s.config.Width,
		Height: s.config.Height,
		Format: fromTextureFormat(s.config.Format),
	}
}

func (s *Surface) Acquire() (gpu.Frame, error) {
	if s.config == nil {
		return nil, fmt.Errorf("%w: surface not configured", gpu.ErrValidation)
	}
	tex, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &Frame{surface: s, tex: tex, view: &TextureView{view: view, format: fromTextureFormat(s.config.Format)}}, nil
}

func (s *Surface) Release() {
	if s.surface != nil {
		s.surface.Release()
		s.surface = nil
	}
}

type TextureView struct {
	view   *wgpu.TextureView
	format gpu.TextureFormat
}

func (v *TextureView) Format() gpu.TextureFormat { return v.format }

type Frame struct {
	surface *Surface
	tex     *wgpu.Texture
	view    *TextureView
}

func (f *Frame) Target() gpu.RenderTarget { return f.view }

func (f *Frame) Present() {
	if f.tex == nil {
		return
	}
	f.surface.surface.Present()
	f.release()
}

func (f *Frame) Discard() { f.release() }

func (f *Frame) release() {
	if f.view != nil {
		f.view.view.Release()
		f.view = nil
	}
	if f.tex != nil {
		f.tex.Release()
		f.tex = nil
	}
}
