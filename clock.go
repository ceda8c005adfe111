package particlelife

import (
	"github.com/gekko3d/particlelife/rt/app"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// GlfwClock reads the GLFW timer. GLFW must be initialized.
type GlfwClock struct{}

func (GlfwClock) Now() float64 { return glfw.GetTime() }

var _ app.Clock = GlfwClock{}
