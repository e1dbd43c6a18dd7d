package renderer

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// SurfaceSource is the part of a window the renderer needs to create and size its surface.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

// Renderer defines the interface for the rendering system.
//
// The Renderer owns the GPU device and surface, a cache of created pipelines, and the per-frame
// command encoder. A frame is recorded as any sequence of compute dispatches, buffer copies and
// render passes between BeginFrame and EndFrame and is submitted as one command buffer.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines creates the GPU objects for each pipeline and caches it by PipelineKey.
	// Pipelines whose keys are already registered are skipped. On failure the pipelines created
	// by this call are released and removed again.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// ReleasePipelines releases and forgets the pipelines with the given keys. Unknown keys are ignored.
	//
	// Parameters:
	//   - keys: the pipeline keys to release
	ReleasePipelines(keys ...string)

	// Resize reconfigures the surface for a new size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the present mode and reconfigures the surface with it.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// SurfaceFormat returns the color format of the surface.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface format
	SurfaceFormat() wgpu.TextureFormat

	// SurfaceSize returns the configured surface size in pixels.
	//
	// Returns:
	//   - int: the width
	//   - int: the height
	SurfaceSize() (int, int)

	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error)
	CreateBufferInit(label string, contents []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error)
	CreateRenderTexture(label string, width, height int, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error)

	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers writes all staged buffer writes to the GPU queue. Writes are ordered before
	// the next submitted frame.
	//
	// Parameters:
	//   - writes: the staged writes
	//
	// Returns:
	//   - error: the first write error
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BeginFrame acquires the surface texture and opens the frame encoder.
	//
	// Returns:
	//   - error: an error if the surface texture or encoder could not be acquired
	BeginFrame() error

	// DispatchCompute records a compute dispatch of the cached compute pipeline.
	//
	// Parameters:
	//   - pipelineKey: the key of a registered compute pipeline
	//   - workGroupCount: the number of workgroups in x, y and z
	//   - bindGroups: the providers bound at group 0, 1, ...
	//
	// Returns:
	//   - error: ErrUnknownPipeline or a recording error
	DispatchCompute(pipelineKey string, workGroupCount [3]uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// CopyBuffer records a buffer to buffer copy on the frame encoder.
	CopyBuffer(src *wgpu.Buffer, srcOffset uint64, dst *wgpu.Buffer, dstOffset, size uint64) error

	// BeginRenderPass opens a render pass with the given attachments.
	BeginRenderPass(config RenderPassConfig) error

	// DrawCall records an indexed draw of meshProvider's buffers with the cached render pipeline.
	//
	// Parameters:
	//   - pipelineKey: the key of a registered render pipeline
	//   - meshProvider: the BindGroupProvider holding vertex and index buffers
	//   - instanceCount: the number of instances to draw
	//   - bindGroups: the providers bound at group 0, 1, ...
	//
	// Returns:
	//   - error: ErrUnknownPipeline or ErrNoRenderPass
	DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// DrawFullscreen records a full-screen triangle draw with the cached render pipeline.
	DrawFullscreen(pipelineKey string, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndRenderPass closes the open render pass.
	EndRenderPass() error

	// EndFrame finishes the frame encoder and submits it as a single command buffer.
	EndFrame() error

	// DiscardFrame drops a partially recorded frame.
	DiscardFrame()

	// Present presents the surface texture acquired by BeginFrame.
	Present()

	// Release releases every cached pipeline and the GPU device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates the backend for backendType on the surface of source and configures the
// surface at the source's current size.
//
// Parameters:
//   - backendType: the GPU backend to use
//   - source: the window providing the surface descriptor and size
//   - options: a variadic list of RendererBuilderOption functions
//
// Returns:
//   - Renderer: the created renderer
//   - error: an error if no adapter or device could be acquired
func NewRenderer(backendType RendererBackendType, source SurfaceSource, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	for _, opt := range options {
		opt(r)
	}

	var err error
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend, err = newWGPURendererBackend(source.SurfaceDescriptor(), r.forceFallbackAdapter)
	}
	if err != nil {
		return nil, err
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(source.Width(), source.Height())
	return r, nil
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
	r.backend.ConfigureSurface(r.backend.SurfaceSize())
}

func (r *renderer) SurfaceFormat() wgpu.TextureFormat {
	return r.backend.SurfaceFormat()
}

func (r *renderer) SurfaceSize() (int, int) {
	return r.backend.SurfaceSize()
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := make([]string, 0, len(pipelines))
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		var err error
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			err = r.backend.RegisterComputePipeline(p)
		case pipeline.PipelineTypeRender:
			err = r.backend.RegisterRenderPipeline(p)
		default:
			err = fmt.Errorf("pipeline %s has unknown type %d", key, p.Type())
		}
		if err != nil {
			r.releaseLocked(created...)
			return err
		}
		r.pipelineCache[key] = p
		created = append(created, key)
	}
	return nil
}

func (r *renderer) ReleasePipelines(keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked(keys...)
}

func (r *renderer) releaseLocked(keys ...string) {
	for _, key := range keys {
		if p, ok := r.pipelineCache[key]; ok {
			p.Release()
			delete(r.pipelineCache, key)
		}
	}
}

func (r *renderer) lookup(key string) (pipeline.Pipeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pipelineCache[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipeline, key)
	}
	return p, nil
}

func (r *renderer) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	return r.backend.CreateBuffer(label, size, usage)
}

func (r *renderer) CreateBufferInit(label string, contents []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	return r.backend.CreateBufferInit(label, contents, usage)
}

func (r *renderer) CreateRenderTexture(label string, width, height int, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error) {
	return r.backend.CreateRenderTexture(label, width, height, format, usage)
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	return r.backend.InitMeshBuffers(provider, vertexData, indexData, indexCount)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	return r.backend.InitBindGroup(provider, descriptor, bufferUsageOverrides, bufferSizeOverrides)
}

func (r *renderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	return r.backend.InitTextureView(provider, bindingKey, stagingData)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return r.backend.InitSampler(provider, bindingKey, samplerStagingData)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	return r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) DispatchCompute(pipelineKey string, workGroupCount [3]uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	p, err := r.lookup(pipelineKey)
	if err != nil {
		return err
	}
	return r.backend.DispatchCompute(p, workGroupCount, bindGroups)
}

func (r *renderer) CopyBuffer(src *wgpu.Buffer, srcOffset uint64, dst *wgpu.Buffer, dstOffset, size uint64) error {
	return r.backend.CopyBuffer(src, srcOffset, dst, dstOffset, size)
}

func (r *renderer) BeginRenderPass(config RenderPassConfig) error {
	return r.backend.BeginRenderPass(config)
}

func (r *renderer) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	p, err := r.lookup(pipelineKey)
	if err != nil {
		return err
	}
	return r.backend.DrawCall(p, meshProvider, instanceCount, bindGroups)
}

func (r *renderer) DrawFullscreen(pipelineKey string, bindGroups []bind_group_provider.BindGroupProvider) error {
	p, err := r.lookup(pipelineKey)
	if err != nil {
		return err
	}
	return r.backend.DrawFullscreen(p, bindGroups)
}

func (r *renderer) EndRenderPass() error {
	return r.backend.EndRenderPass()
}

func (r *renderer) EndFrame() error {
	return r.backend.EndFrame()
}

func (r *renderer) DiscardFrame() {
	r.backend.DiscardFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Release() {
	r.mu.Lock()
	keys := slices.Collect(maps.Keys(r.pipelineCache))
	r.releaseLocked(keys...)
	r.mu.Unlock()
	r.backend.Release()
}
