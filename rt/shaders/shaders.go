package shaders

import (
	_ "embed"
)

//go:embed compute.wgsl
var ComputeWGSL string

//go:embed points.wgsl
var PointsWGSL string

//go:embed quads.wgsl
var QuadsWGSL string

// Entry points shared by the embedded modules.
const (
	ComputeEntry  = "main"
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)
