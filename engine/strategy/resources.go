package strategy

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// clusterResources owns the per-cluster offset table, the light index pool and the grid uniform.
// They live in the culling pass's scene group; shading passes bind the same buffers read-only.
type clusterResources struct {
	grid             light.ClusterGrid
	lightsPerCluster uint32
	cullGroup        bind_group_provider.BindGroupProvider
	poolReset        *wgpu.Buffer
}

// newClusterResources builds the cluster buffers for the surface size using slicing.
func (b *base) newClusterResources(slicing light.DepthSlicing) (*clusterResources, error) {
	w, h := b.r.SurfaceSize()
	grid := light.ClusterGrid{
		NumX:    b.cfg.ClustersX,
		NumY:    b.cfg.ClustersY,
		NumZ:    b.cfg.ClustersZ,
		Width:   float32(max(w, 1)),
		Height:  float32(max(h, 1)),
		Near:    b.cam.Near(),
		Far:     b.cam.Far(),
		Slicing: slicing,
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	reset, err := b.r.CreateBufferInit(b.prefix+"/pool_reset", common.SliceToBytes([]uint32{0}), wgpu.BufferUsageCopySrc)
	if err != nil {
		return nil, fmt.Errorf("pool reset buffer: %w", err)
	}
	b.buffers = append(b.buffers, reset)

	lpc := b.cfg.LightsPerCluster
	group, err := b.newGroup("cluster_cull", b.pipelines.cull,
		map[int]uint64{
			bindingClusterOffsets: grid.OffsetTableSize(),
			bindingLightPool:      grid.PoolSize(lpc),
		},
		bind_group_provider.WithSharedBuffer(bindingCamera, b.cameraBuffer()),
		bind_group_provider.WithSharedBuffer(bindingLights, b.lightBuffer()),
	)
	if err != nil {
		return nil, err
	}

	c := &clusterResources{
		grid:             grid,
		lightsPerCluster: lpc,
		cullGroup:        group,
		poolReset:        reset,
	}
	if err := c.writeGrid(b.r); err != nil {
		return nil, err
	}
	common.Logger().Debug("cluster buffers created",
		"clusters", grid.ClusterCount(),
		"pool_capacity", grid.PoolCapacity(lpc),
		"slicing", slicing,
	)
	return c, nil
}

func (c *clusterResources) writeGrid(r renderer.Renderer) error {
	g := c.grid.GPU()
	return r.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: c.cullGroup,
		Binding:  bindingClusterGrid,
		Data:     g.Marshal(),
	}})
}

// resize updates the grid's screen size. Buffer sizes depend only on the cluster count, so
// nothing is reallocated.
func (c *clusterResources) resize(r renderer.Renderer, width, height int) error {
	c.grid.Width = float32(max(width, 1))
	c.grid.Height = float32(max(height, 1))
	return c.writeGrid(r)
}

// cull records the pool counter reset and one culling workgroup per cluster.
func (c *clusterResources) cull(r renderer.Renderer, pipelineKey string) error {
	if err := r.CopyBuffer(c.poolReset, 0, c.cullGroup.Buffer(bindingLightPool), 0, 4); err != nil {
		return fmt.Errorf("reset light pool: %w", err)
	}
	return r.DispatchCompute(pipelineKey,
		[3]uint32{c.grid.NumX, c.grid.NumY, c.grid.NumZ},
		[]bind_group_provider.BindGroupProvider{c.cullGroup},
	)
}

// shared returns options binding the camera, lights and cluster buffers at their scene group
// slots, for a shading pass.
func (c *clusterResources) shared() []bind_group_provider.BindGroupProviderOption {
	opts := make([]bind_group_provider.BindGroupProviderOption, 0, 5)
	for _, binding := range []int{bindingCamera, bindingLights, bindingClusterOffsets, bindingLightPool, bindingClusterGrid} {
		opts = append(opts, bind_group_provider.WithSharedBuffer(binding, c.cullGroup.Buffer(binding)))
	}
	return opts
}

// renderTarget is a texture created for rendering into and sampling from.
type renderTarget struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (b *base) newTarget(name string, width, height int, format wgpu.TextureFormat) (renderTarget, error) {
	tex, view, err := b.r.CreateRenderTexture(b.prefix+"/"+name, width, height, format,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding,
	)
	if err != nil {
		return renderTarget{}, err
	}
	return renderTarget{texture: tex, view: view}, nil
}

func (t *renderTarget) release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// gBuffer holds the deferred color targets in gBufferFormats order and the shared depth target.
type gBuffer struct {
	colors [4]renderTarget
	depth  renderTarget
}

func (b *base) newGBuffer(width, height int) (*gBuffer, error) {
	g := &gBuffer{}
	names := [4]string{"gbuffer_albedo", "gbuffer_normal", "gbuffer_position", "gbuffer_specular"}
	for i, format := range gBufferFormats {
		target, err := b.newTarget(names[i], width, height, format)
		if err != nil {
			g.release()
			return nil, err
		}
		g.colors[i] = target
	}
	depth, err := b.newTarget("gbuffer_depth", width, height, renderer.DepthFormat)
	if err != nil {
		g.release()
		return nil, err
	}
	g.depth = depth
	return g, nil
}

// attachments returns the color attachments of the geometry pass, all cleared to zero.
func (g *gBuffer) attachments() []renderer.ColorAttachment {
	out := make([]renderer.ColorAttachment, len(g.colors))
	for i := range g.colors {
		out[i] = renderer.ColorAttachment{View: g.colors[i].view, Clear: true}
	}
	return out
}

// shared returns options binding the G-buffer views at bindings 5-9.
func (g *gBuffer) shared() []bind_group_provider.BindGroupProviderOption {
	opts := make([]bind_group_provider.BindGroupProviderOption, 0, 5)
	for i := range g.colors {
		opts = append(opts, bind_group_provider.WithSharedTextureView(bindingGBufferAlbedo+i, g.colors[i].view))
	}
	return append(opts, bind_group_provider.WithSharedTextureView(bindingGBufferDepth, g.depth.view))
}

func (g *gBuffer) release() {
	for i := range g.colors {
		g.colors[i].release()
	}
	g.depth.release()
}
