package strategy

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// Scene group bindings. The cluster passes use 0-4, the deferred shading pass adds the
// G-buffer at 5-9, and the light animation pass binds the light set at 0 and its uniform at 1.
const (
	bindingCamera         = 0
	bindingLights         = 1
	bindingClusterOffsets = 2
	bindingLightPool      = 3
	bindingClusterGrid    = 4
	bindingGBufferAlbedo  = 5
	bindingGBufferDepth   = 9

	bindingMoveLightsSet     = 0
	bindingMoveLightsUniform = 1
)

// ErrMissingSharedBuffer is returned by New when the camera or light set has no GPU buffer.
var ErrMissingSharedBuffer = errors.New("shared buffer not created")

// ErrNoRenderTargets is returned by Draw before the strategy has been sized to a non-empty
// surface. It wraps renderer.ErrSurfaceUnavailable so the frame is skipped.
var ErrNoRenderTargets = errors.New("render targets not created")

// base holds what every strategy shares: its collaborators, its registered pipelines and the
// GPU resources released by Stop.
type base struct {
	mode   Mode
	prefix string
	cfg    Config

	r      renderer.Renderer
	cam    camera.Camera
	lights light.LightSet
	scene  scene.Scene

	pipelines    pipelineSet
	registered   bool
	animateGroup bind_group_provider.BindGroupProvider

	providers []bind_group_provider.BindGroupProvider
	buffers   []*wgpu.Buffer
	cleanup   []func()
	stopped   bool
}

// setup builds and registers the mode's pipelines and the light animation bind group.
func (b *base) setup() error {
	if b.cameraBuffer() == nil {
		return fmt.Errorf("%w: camera uniform", ErrMissingSharedBuffer)
	}
	if b.lightBuffer() == nil {
		return fmt.Errorf("%w: light set", ErrMissingSharedBuffer)
	}

	shaders, err := newShaderSet(b.prefix, b.cfg, b.lights.Radius())
	if err != nil {
		return err
	}
	ps, err := buildPipelines(b.mode, shaders, b.cfg.AnimateLights)
	if err != nil {
		return err
	}
	if err := b.r.RegisterPipelines(ps.all()...); err != nil {
		return fmt.Errorf("register pipelines: %w", err)
	}
	b.pipelines = ps
	b.registered = true

	if ps.animate != nil {
		b.animateGroup, err = b.newGroup("move_lights", ps.animate, nil,
			bind_group_provider.WithSharedBuffer(bindingMoveLightsSet, b.lightBuffer()),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *base) Mode() Mode {
	return b.mode
}

func (b *base) Stop() {
	if b.stopped {
		return
	}
	b.stopped = true
	b.release()
	common.Logger().Debug("strategy stopped", "mode", b.mode.String(), "instance", b.prefix)
}

// release frees everything allocated so far. It is safe on a partially built strategy.
func (b *base) release() {
	for i := len(b.cleanup) - 1; i >= 0; i-- {
		b.cleanup[i]()
	}
	for i := len(b.providers) - 1; i >= 0; i-- {
		b.providers[i].Release()
	}
	for _, buf := range b.buffers {
		buf.Release()
	}
	if b.registered {
		b.r.ReleasePipelines(b.pipelines.keys()...)
		b.registered = false
	}
	b.cleanup, b.providers, b.buffers = nil, nil, nil
	b.animateGroup = nil
}

func (b *base) cameraBuffer() *wgpu.Buffer {
	if p := b.cam.BindGroupProvider(); p != nil {
		return p.Buffer(0)
	}
	return nil
}

func (b *base) lightBuffer() *wgpu.Buffer {
	if p := b.lights.BindGroupProvider(); p != nil {
		return p.Buffer(0)
	}
	return nil
}

// initGroup creates a provider for the given group of p and initializes its bind group.
// Missing buffers are created at their reflected minimum size unless sizes overrides them.
// The caller owns the returned provider.
//
// Parameters:
//   - name: the provider label suffix
//   - p: the pipeline whose layout the bind group must match
//   - group: the bind group index
//   - sizes: per-binding buffer sizes, or nil
//   - opts: shared buffers and texture views
//
// Returns:
//   - bind_group_provider.BindGroupProvider: the initialized provider
//   - error: an error if the bind group could not be created
func (b *base) initGroup(name string, p pipeline.Pipeline, group int, sizes map[int]uint64, opts ...bind_group_provider.BindGroupProviderOption) (bind_group_provider.BindGroupProvider, error) {
	provider := bind_group_provider.NewBindGroupProvider(b.prefix+"/"+name, opts...)
	if err := b.r.InitBindGroup(provider, p.BindGroupLayoutDescriptor(group), nil, sizes); err != nil {
		provider.Release()
		return nil, fmt.Errorf("bind group %s: %w", name, err)
	}
	return provider, nil
}

// newGroup is initGroup for the scene group, with the provider released by Stop.
func (b *base) newGroup(name string, p pipeline.Pipeline, sizes map[int]uint64, opts ...bind_group_provider.BindGroupProviderOption) (bind_group_provider.BindGroupProvider, error) {
	provider, err := b.initGroup(name, p, SceneGroup, sizes, opts...)
	if err != nil {
		return nil, err
	}
	b.providers = append(b.providers, provider)
	return provider, nil
}

// cameraGroup creates the scene group of a pass that binds only the camera.
func (b *base) cameraGroup(name string, p pipeline.Pipeline) (bind_group_provider.BindGroupProvider, error) {
	return b.newGroup(name, p, nil, bind_group_provider.WithSharedBuffer(bindingCamera, b.cameraBuffer()))
}

// frame wraps record in BeginFrame and EndFrame, discarding the frame if anything fails.
func (b *base) frame(record func() error) error {
	if b.stopped {
		return fmt.Errorf("strategy %s: stopped", b.mode)
	}
	if err := b.r.BeginFrame(); err != nil {
		return err
	}
	if err := record(); err != nil {
		b.r.DiscardFrame()
		return err
	}
	if err := b.r.EndFrame(); err != nil {
		b.r.DiscardFrame()
		return err
	}
	return nil
}

// pass records one render pass.
func (b *base) pass(cfg renderer.RenderPassConfig, record func() error) error {
	if err := b.r.BeginRenderPass(cfg); err != nil {
		return fmt.Errorf("%s: %w", cfg.Label, err)
	}
	if err := record(); err != nil {
		return fmt.Errorf("%s: %w", cfg.Label, err)
	}
	return b.r.EndRenderPass()
}

// animate records the light animation dispatch, one invocation per light.
func (b *base) animate() error {
	if b.animateGroup == nil {
		return nil
	}
	n := b.lights.GPUNumLights()
	if n == 0 {
		return nil
	}

	boundsMin, boundsMax := b.lights.Bounds()
	u := light.GPUMoveLightsUniform{
		BoundsMin: boundsMin,
		Time:      float32(b.cfg.Clock().Seconds()),
		BoundsMax: boundsMax,
		Speed:     b.cfg.AnimationSpeed,
	}
	if err := b.r.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: b.animateGroup,
		Binding:  bindingMoveLightsUniform,
		Data:     u.Marshal(),
	}}); err != nil {
		return fmt.Errorf("move lights uniform: %w", err)
	}

	count := workgroupCount(uint32(n), light.MoveLightsWorkgroupSize)
	return b.r.DispatchCompute(b.pipelines.animate.PipelineKey(), [3]uint32{count, 1, 1},
		[]bind_group_provider.BindGroupProvider{b.animateGroup},
	)
}

// drawScene issues one draw per primitive with the scene group at 0, the node's model group at 1
// and, when withMaterial is set, the batch material at 2.
func (b *base) drawScene(pipelineKey string, sceneGroup bind_group_provider.BindGroupProvider, withMaterial bool) error {
	var (
		err           error
		nodeGroup     bind_group_provider.BindGroupProvider
		materialGroup bind_group_provider.BindGroupProvider
	)
	b.scene.Iterate(
		func(n scene.Node) { nodeGroup = n.BindGroupProvider() },
		func(m material.Material) { materialGroup = m.BindGroupProvider() },
		func(p model.Primitive) {
			if err != nil {
				return
			}
			groups := []bind_group_provider.BindGroupProvider{sceneGroup, nodeGroup}
			if withMaterial {
				groups = append(groups, materialGroup)
			}
			err = b.r.DrawCall(pipelineKey, p.MeshProvider(), 1, groups)
		},
	)
	return err
}

// depthPrepass lays down scene depth in target, clearing it first.
func (b *base) depthPrepass(target *wgpu.TextureView, group bind_group_provider.BindGroupProvider) error {
	return b.pass(renderer.RenderPassConfig{
		Label:      "depth prepass",
		Depth:      target,
		ClearDepth: true,
	}, func() error {
		return b.drawScene(b.pipelines.prepass.PipelineKey(), group, false)
	})
}

func workgroupCount(n, size uint32) uint32 {
	return (n + size - 1) / size
}
