// Package native implements the gpu interfaces on WebGPU through
// cogentcore/webgpu.
package native

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/particlelife/rt/gpu"
)

// Context owns the instance, adapter, device and surface of one window.
type Context struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	Device   *Device
	Surface  *Surface
}

// Open creates a surface from desc and negotiates a high performance
// adapter and device compatible with it. The surface is left unconfigured.
func Open(desc *wgpu.SurfaceDescriptor) (*Context, error) {
	c := &Context{instance: wgpu.CreateInstance(nil)}

	surface := c.instance.CreateSurface(desc)
	if surface == nil {
		c.Close()
		return nil, fmt.Errorf("native: create surface failed")
	}

	adapter, err := c.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		surface.Release()
		c.Close()
		return nil, fmt.Errorf("native: request adapter: %w", err)
	}
	c.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "ParticleDevice",
	})
	if err != nil {
		surface.Release()
		c.Close()
		return nil, fmt.Errorf("native: request device: %w", err)
	}

	c.Device = &Device{device: device, queue: device.GetQueue()}
	c.Surface = newSurface(surface, adapter, device)
	return c, nil
}

func (c *Context) Close() {
	if c.Surface != nil {
		c.Surface.Release()
		c.Surface = nil
	}
	if c.Device != nil {
		c.Device.Release()
		c.Device = nil
	}
	if c.adapter != nil {
		c.adapter.Release()
		c.adapter = nil
	}
	if c.instance != nil {
		c.instance.Release()
		c.instance = nil
	}
}

func bufferUsage(u gpu.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	for flag, w := range map[gpu.BufferUsage]wgpu.BufferUsage{
		gpu.BufferUsageCopySrc: wgpu.BufferUsageCopySrc,
		gpu.BufferUsageCopyDst: wgpu.BufferUsageCopyDst,
		gpu.BufferUsageIndex:   wgpu.BufferUsageIndex,
		gpu.BufferUsageVertex:  wgpu.BufferUsageVertex,
		gpu.BufferUsageUniform: wgpu.BufferUsageUniform,
		gpu.BufferUsageStorage: wgpu.BufferUsageStorage,
	} {
		if u.Has(flag) {
			out |= w
		}
	}
	return out
}

func textureFormat(f gpu.TextureFormat) wgpu.TextureFormat {
	switch f {
	case gpu.TextureFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case gpu.TextureFormatBGRA8UnormSrgb:
		return wgpu.TextureFormatBGRA8UnormSrgb
	case gpu.TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case gpu.TextureFormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	}
	return wgpu.TextureFormatUndefined
}

func fromTextureFormat(f wgpu.TextureFormat) gpu.TextureFormat {
	switch f {
	case wgpu.TextureFormatBGRA8Unorm:
		return gpu.TextureFormatBGRA8Unorm
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return gpu.TextureFormatBGRA8UnormSrgb
	case wgpu.TextureFormatRGBA8Unorm:
		return gpu.TextureFormatRGBA8Unorm
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return gpu.TextureFormatRGBA8UnormSrgb
	}
	return gpu.TextureFormatUndefined
}

func vertexFormat(f gpu.VertexFormat) wgpu.VertexFormat {
	if f == gpu.VertexFormatFloat32x4 {
		return wgpu.VertexFormatFloat32x4
	}
	return wgpu.VertexFormatFloat32x2
}

func stepMode(m gpu.StepMode) wgpu.VertexStepMode {
	if m == gpu.StepModeInstance {
		return wgpu.VertexStepModeInstance
	}
	return wgpu.VertexStepModeVertex
}

func topology(t gpu.Topology) wgpu.PrimitiveTopology {
	if t == gpu.TopologyTriangleList {
		return wgpu.PrimitiveTopologyTriangleList
	}
	return wgpu.PrimitiveTopologyPointList
}

func indexFormat(f gpu.IndexFormat) wgpu.IndexFormat {
	if f == gpu.IndexFormatUint32 {
		return wgpu.IndexFormatUint32
	}
	return wgpu.IndexFormatUint16
}
