package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwPlatform is a GLFW window without a client API; WebGPU renders into it through the
// wgpuglfw surface bridge.
type glfwPlatform struct {
	window *glfw.Window
}

var _ platform = &glfwPlatform{}

// glfwButtons maps the GLFW buttons the window reports drags for.
var glfwButtons = map[glfw.MouseButton]Button{
	glfw.MouseButtonLeft:   ButtonLeft,
	glfw.MouseButtonRight:  ButtonRight,
	glfw.MouseButtonMiddle: ButtonMiddle,
}

// newGLFWPlatform opens the window and routes its events into w. The calling goroutine stays
// locked to its OS thread, which GLFW requires for every later call.
//
// Reference: https://www.glfw.org/docs/latest/window_guide.html
func newGLFWPlatform(w *engineWindow) (*glfwPlatform, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initialize GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create GLFW window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.RequestClose()
			return
		}
		w.keyEvent(uint32(key), action != glfw.Release)
	})
	win.SetMouseButtonCallback(func(win *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if b, ok := glfwButtons[button]; ok {
			x, y := win.GetCursorPos()
			w.buttonEvent(b, action == glfw.Press, x, y)
		}
	})
	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.cursorEvent(x, y)
	})
	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		w.scrollEvent(float32(yoff))
	})

	// Surfaces are sized in pixels, which differ from screen coordinates on high-DPI displays.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resizeEvent(width, height)
	})
	w.width, w.height = win.GetFramebufferSize()

	return &glfwPlatform{window: win}, nil
}

func (p *glfwPlatform) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(p.window)
}

func (p *glfwPlatform) shouldClose() bool {
	return p.window.ShouldClose()
}

func (p *glfwPlatform) requestClose() {
	p.window.SetShouldClose(true)
}

func (p *glfwPlatform) setTitle(title string) {
	p.window.SetTitle(title)
}

func (p *glfwPlatform) pollEvents() {
	glfw.PollEvents()
}

func (p *glfwPlatform) destroy() {
	p.window.Destroy()
	glfw.Terminate()
}
