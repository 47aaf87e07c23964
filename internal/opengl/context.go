package opengl

import (
	"fmt"
	"runtime"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

// ErrGpuResource covers allocation failures, incomplete framebuffers and
// context creation problems.
var ErrGpuResource = fmt.Errorf("GPU resource error")

// Context is an offscreen OpenGL 4.1 core context. The precomputation
// pipeline is its sole user; all calls must stay on the thread that
// created it.
type Context struct {
	window *glfw.Window
}

// NewContext initializes GLFW with a hidden window and makes a 4.1 core
// context current.
func NewContext() (*Context, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize GLFW: %v", ErrGpuResource, err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.False)

	window, err := glfw.CreateWindow(16, 16, "calcmysky", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("%w: failed to create offscreen window: %v", ErrGpuResource, err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("%w: failed to load OpenGL functions: %v", ErrGpuResource, err)
	}
	return &Context{window: window}, nil
}

// Finish blocks until the GPU has drained all submitted work.
func (c *Context) Finish() {
	gl.Finish()
}

// Destroy tears the context down.
func (c *Context) Destroy() {
	c.window.Destroy()
	glfw.Terminate()
}
