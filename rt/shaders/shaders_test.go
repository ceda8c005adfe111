package shaders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddedModules(t *testing.T) {
	assert.Contains(t, ComputeWGSL, "@workgroup_size(256)")
	assert.Contains(t, ComputeWGSL, "@binding(0) var<uniform> params: SimParams")
	assert.Contains(t, ComputeWGSL, "@binding(1) var<storage, read_write> particles")
	assert.Contains(t, ComputeWGSL, "fn "+ComputeEntry+"(")
	assert.Contains(t, ComputeWGSL, "clamp(p.position, vec2<f32>(-1.0), vec2<f32>(1.0))")

	for name, src := range map[string]string{"points": PointsWGSL, "quads": QuadsWGSL} {
		assert.True(t, strings.Contains(src, "fn "+VertexEntry+"("), name)
		assert.True(t, strings.Contains(src, "fn "+FragmentEntry+"("), name)
	}
}
