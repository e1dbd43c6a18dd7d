package renderer

import (
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency and is used for benchmarking.
	PresentModeUncapped
)

// DepthFormat is the format of every depth attachment created for render strategies.
const DepthFormat = wgpu.TextureFormatDepth24Plus

var (
	// ErrNoFrame is returned by frame operations issued outside BeginFrame/EndFrame.
	ErrNoFrame = errors.New("no frame in progress")

	// ErrFrameInProgress is returned by BeginFrame while the previous frame is still open.
	ErrFrameInProgress = errors.New("previous frame not yet presented")

	// ErrNoRenderPass is returned by draw calls issued outside a render pass.
	ErrNoRenderPass = errors.New("no render pass in progress")

	// ErrRenderPassInProgress is returned when a compute dispatch, copy or new render pass is
	// encoded while a render pass is open.
	ErrRenderPassInProgress = errors.New("render pass in progress")

	// ErrUnknownPipeline is returned when a pipeline key is not registered.
	ErrUnknownPipeline = errors.New("unknown pipeline")

	// ErrSurfaceUnavailable is returned when the surface texture cannot be acquired, for example
	// while the window is minimized.
	ErrSurfaceUnavailable = errors.New("surface texture unavailable")
)

// ColorAttachment describes one color target of a render pass.
type ColorAttachment struct {
	// View is the render target. Nil targets the surface texture of the current frame.
	View *wgpu.TextureView
	// Clear clears the target to ClearColor; otherwise its contents are loaded.
	Clear      bool
	ClearColor wgpu.Color
}

// RenderPassConfig describes a render pass opened with BeginRenderPass.
type RenderPassConfig struct {
	Label string
	// Colors holds the color targets in location order. Empty for depth-only passes.
	Colors []ColorAttachment
	// Depth is the depth attachment, or nil.
	Depth *wgpu.TextureView
	// ClearDepth clears the depth attachment to 1.0; otherwise its contents are loaded.
	ClearDepth bool
}

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}
