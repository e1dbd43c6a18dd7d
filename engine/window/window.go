package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and input event handling.
// Wraps platform-specific window implementations with a common interface.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the window is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetDragCallback sets the callback for cursor movement while a mouse button is held. It is
	// called once per held button.
	//
	// Parameters:
	//   - callback: function receiving the held button and the cursor delta in screen coordinates
	SetDragCallback(callback func(button Button, dx, dy float32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// RequestClose asks the message loop to stop after the current iteration.
	// Unlike Close it leaves platform resources in place, so it is safe to call from the update callback.
	RequestClose()

	// SetTitle replaces the title bar text. Must be called from the thread running ProcessMessages.
	//
	// Parameters:
	//   - title: the new window title
	SetTitle(title string)

	// Title returns the current window title.
	//
	// Returns:
	//   - string: the title bar text
	Title() string

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Width returns the current window client area width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current window client area height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// Button identifies a mouse button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
	buttonCount
)

// platform is the native window behind an engineWindow. Its event callbacks report back through
// the engineWindow input methods.
type platform interface {
	surfaceDescriptor() *wgpu.SurfaceDescriptor
	shouldClose() bool
	requestClose()
	setTitle(title string)
	pollEvents()
	destroy()
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title string

	// Resize limits in screen coordinates.
	minWidth, minHeight int
	maxWidth, maxHeight int

	// Framebuffer size in pixels, updated from the platform resize event.
	width, height int

	platform platform
	closing  bool

	pressed          [buttonCount]bool
	cursorX, cursorY float64

	onUpdate  func()
	onResize  func(width, height int)
	onScroll  func(delta float32)
	onKeyDown func(keyCode uint32)
	onKeyUp   func(keyCode uint32)
	onDrag    func(button Button, dx, dy float32)
}

var _ Window = &engineWindow{}

// NewWindow creates and spawns a platform window with the specified options.
// Must be called from the main goroutine; the calling thread is locked to its OS thread.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the spawned window
//   - error: an error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)
	p, err := newGLFWPlatform(w)
	if err != nil {
		return nil, fmt.Errorf("create platform window: %w", err)
	}
	w.platform = p
	return w, nil
}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:     "oxy-clustered",
		maxWidth:  2560,
		maxHeight: 1440,
		minWidth:  320,
		minHeight: 200,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetDragCallback(callback func(button Button, dx, dy float32)) {
	w.onDrag = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.platform == nil {
		return nil
	}
	return w.platform.surfaceDescriptor()
}

func (w *engineWindow) IsRunning() bool {
	return w.platform != nil && !w.closing && !w.platform.shouldClose()
}

func (w *engineWindow) RequestClose() {
	w.closing = true
	if w.platform != nil {
		w.platform.requestClose()
	}
}

func (w *engineWindow) SetTitle(title string) {
	if title == w.title {
		return
	}
	w.title = title
	if w.platform != nil {
		w.platform.setTitle(title)
	}
}

func (w *engineWindow) Title() string {
	return w.title
}

func (w *engineWindow) Close() error {
	if w.platform == nil {
		return fmt.Errorf("window is not initialized")
	}
	w.closing = true
	w.platform.destroy()
	w.platform = nil
	return nil
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		w.platform.pollEvents()
		if !w.IsRunning() {
			break
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// keyEvent dispatches a key transition. Repeats arrive as further presses.
func (w *engineWindow) keyEvent(code uint32, down bool) {
	switch {
	case down && w.onKeyDown != nil:
		w.onKeyDown(code)
	case !down && w.onKeyUp != nil:
		w.onKeyUp(code)
	}
}

// buttonEvent records a mouse button transition at cursor position (x, y). Drags are measured
// from this position.
func (w *engineWindow) buttonEvent(b Button, down bool, x, y float64) {
	if b < 0 || b >= buttonCount {
		return
	}
	w.pressed[b] = down
	w.cursorX, w.cursorY = x, y
}

// cursorEvent reports the movement since the previous cursor position to every held button.
func (w *engineWindow) cursorEvent(x, y float64) {
	dx, dy := float32(x-w.cursorX), float32(y-w.cursorY)
	w.cursorX, w.cursorY = x, y
	if w.onDrag == nil || (dx == 0 && dy == 0) {
		return
	}
	for b := range buttonCount {
		if w.pressed[b] {
			w.onDrag(b, dx, dy)
		}
	}
}

// scrollEvent dispatches a vertical scroll; positive is away from the user.
func (w *engineWindow) scrollEvent(delta float32) {
	if w.onScroll != nil && delta != 0 {
		w.onScroll(delta)
	}
}

// resizeEvent stores the framebuffer size and dispatches it. Minimized windows report zero and
// keep the previous size.
func (w *engineWindow) resizeEvent(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	w.width, w.height = width, height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}
