package native

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/particlelife/rt/gpu"
	"github.com/stretchr/testify/assert"
)

func TestBufferUsageMapping(t *testing.T) {
	assert.Equal(t, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc,
		bufferUsage(gpu.BufferUsageStorage|gpu.BufferUsageCopySrc))
	assert.Equal(t, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst,
		bufferUsage(gpu.BufferUsageVertex|gpu.BufferUsageCopyDst))
	assert.Equal(t, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst,
		bufferUsage(gpu.BufferUsageUniform|gpu.BufferUsageCopyDst))
	assert.Equal(t, wgpu.BufferUsageIndex, bufferUsage(gpu.BufferUsageIndex))
}

func TestTextureFormatRoundTrip(t *testing.T) {
	for _, f := range []gpu.TextureFormat{
		gpu.TextureFormatBGRA8Unorm,
		gpu.TextureFormatBGRA8UnormSrgb,
		gpu.TextureFormatRGBA8Unorm,
		gpu.TextureFormatRGBA8UnormSrgb,
	} {
		assert.Equal(t, f, fromTextureFormat(textureFormat(f)), f.String())
	}
	assert.Equal(t, gpu.TextureFormatUndefined, fromTextureFormat(wgpu.TextureFormatR32Float))
}

func TestPipelineEnums(t *testing.T) {
	assert.Equal(t, wgpu.VertexStepModeInstance, stepMode(gpu.StepModeInstance))
	assert.Equal(t, wgpu.VertexStepModeVertex, stepMode(gpu.StepModeVertex))
	assert.Equal(t, wgpu.PrimitiveTopologyPointList, topology(gpu.TopologyPointList))
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, topology(gpu.TopologyTriangleList))
	assert.Equal(t, wgpu.VertexFormatFloat32x4, vertexFormat(gpu.VertexFormatFloat32x4))
	assert.Equal(t, wgpu.IndexFormatUint16, indexFormat(gpu.IndexFormatUint16))
}

func TestSurfacePreferredFormat(t *testing.T) {
	s := &Surface{caps: wgpu.SurfaceCapabilities{
		Formats: []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb},
	}}
	assert.Equal(t, gpu.TextureFormatBGRA8UnormSrgb, s.PreferredFormat())

	s.caps.Formats = []wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm}
	assert.Equal(t, gpu.TextureFormatRGBA8Unorm, s.PreferredFormat())
	assert.Equal(t, gpu.SurfaceConfiguration{}, s.Configuration())

	_, err := s.Acquire()
	assert.ErrorIs(t, err, gpu.ErrValidation)
	assert.ErrorIs(t, s.Configure(0, 600, gpu.TextureFormatRGBA8Unorm), gpu.ErrValidation)
}
