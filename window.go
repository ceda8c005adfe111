package particlelife

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window is what the frame loop needs from the platform window.
type Window interface {
	ShouldClose() bool
	PollEvents()
	FramebufferSize() (width, height int)
	// OnResize registers fn for framebuffer size changes. Later calls replace fn.
	OnResize(fn func(width, height int))
}

// GlfwWindow is a resizable GLFW window without a client API, ready to back
// a WebGPU surface.
type GlfwWindow struct {
	win *glfw.Window
}

// OpenWindow initializes GLFW and creates the window. It must run on the
// main thread.
func OpenWindow(cfg WindowConfig) (*GlfwWindow, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}

	win.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})
	return &GlfwWindow{win: win}, nil
}

func (w *GlfwWindow) ShouldClose() bool { return w.win.ShouldClose() }
func (w *GlfwWindow) PollEvents()       { glfw.PollEvents() }

func (w *GlfwWindow) FramebufferSize() (int, int) { return w.win.GetFramebufferSize() }

func (w *GlfwWindow) OnResize(fn func(width, height int)) {
	w.win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		fn(width, height)
	})
}

// SurfaceDescriptor wraps the window for wgpu surface creation.
func (w *GlfwWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w.win)
}

// Destroy closes the window and terminates GLFW.
func (w *GlfwWindow) Destroy() {
	w.win.Destroy()
	glfw.Terminate()
}
