package scene

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
)

// ResourceUploader creates the GPU resources a scene draws with. renderer.Renderer satisfies it.
type ResourceUploader interface {
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error
	WriteBuffers(writes []bind_group_provider.BufferWrite) error
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name     string
	nodes    []Node
	uploaded bool
}

// Scene is a flat list of nodes traversed node -> material -> primitive. Render strategies draw
// it through Iterate, binding the node's model group, then the material group, then issuing one
// indexed draw per primitive.
type Scene interface {
	// Name returns the scene identifier.
	Name() string

	// Nodes returns the nodes in traversal order.
	Nodes() []Node

	// AddNode appends a node. Nodes added after Upload are not drawn until the next Upload.
	AddNode(n Node)

	// Materials returns each distinct material once, in first-use order.
	Materials() []material.Material

	// Primitives returns each distinct primitive once, in first-use order.
	Primitives() []model.Primitive

	// TriangleCount returns the number of triangles one traversal draws.
	TriangleCount() int

	// Iterate walks every node, then each of its batches' material, then that batch's primitives.
	// Nil callbacks are skipped.
	//
	// Parameters:
	//   - nodeFn: called once per node before its batches
	//   - materialFn: called once per batch before its primitives
	//   - primitiveFn: called once per primitive
	Iterate(nodeFn func(Node), materialFn func(material.Material), primitiveFn func(model.Primitive))

	// Upload creates every GPU resource the scene needs: mesh buffers, model uniform bind groups and
	// material bind groups with their textures and samplers, then writes the initial uniforms.
	// Resources already created are kept, so Upload may be called again after AddNode.
	//
	// Parameters:
	//   - u: the uploader, normally the renderer
	//
	// Returns:
	//   - error: the first resource creation failure
	Upload(u ResourceUploader) error

	// Uploaded reports whether Upload has completed successfully.
	Uploaded() bool

	// PendingWrites collects the staged uniform writes of every node and material.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the writes to submit
	PendingWrites() []bind_group_provider.BufferWrite

	// Release frees every GPU resource held by the scene's providers.
	Release()
}

var _ Scene = &scene{}

// NewScene creates an empty Scene.
//
// Parameters:
//   - name: the scene identifier
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:   &sync.RWMutex{},
		name: name,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Node(nil), s.nodes...)
}

func (s *scene) AddNode(n Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = append(s.nodes, n)
}

func (s *scene) Materials() []material.Material {
	var out []material.Material
	seen := make(map[material.Material]bool)
	s.Iterate(nil, func(m material.Material) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}, nil)
	return out
}

func (s *scene) Primitives() []model.Primitive {
	var out []model.Primitive
	seen := make(map[model.Primitive]bool)
	s.Iterate(nil, nil, func(p model.Primitive) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	})
	return out
}

func (s *scene) TriangleCount() int {
	total := 0
	s.Iterate(nil, nil, func(p model.Primitive) {
		total += p.IndexCount() / 3
	})
	return total
}

func (s *scene) Iterate(nodeFn func(Node), materialFn func(material.Material), primitiveFn func(model.Primitive)) {
	for _, n := range s.Nodes() {
		if nodeFn != nil {
			nodeFn(n)
		}
		for _, b := range n.Batches() {
			if materialFn != nil {
				materialFn(b.Material)
			}
			if primitiveFn == nil {
				continue
			}
			for _, p := range b.Primitives {
				primitiveFn(p)
			}
		}
	}
}

func (s *scene) Upload(u ResourceUploader) error {
	modelLayout, err := model.BindGroupLayoutDescriptor()
	if err != nil {
		return err
	}
	materialLayout, err := material.BindGroupLayoutDescriptor()
	if err != nil {
		return err
	}

	for _, m := range s.Materials() {
		p := m.BindGroupProvider()
		if p.BindGroup() != nil {
			continue
		}
		if err := u.InitTextureView(p, material.BindingAlbedoTexture, m.Albedo()); err != nil {
			return fmt.Errorf("material %s: albedo: %w", m.Name(), err)
		}
		if err := u.InitSampler(p, material.BindingAlbedoSampler, m.Sampler()); err != nil {
			return fmt.Errorf("material %s: sampler: %w", m.Name(), err)
		}
		if err := u.InitBindGroup(p, materialLayout, nil, nil); err != nil {
			return fmt.Errorf("material %s: %w", m.Name(), err)
		}
	}

	for _, n := range s.Nodes() {
		if n.BindGroupProvider().BindGroup() != nil {
			continue
		}
		if err := u.InitBindGroup(n.BindGroupProvider(), modelLayout, nil, nil); err != nil {
			return fmt.Errorf("node %s: %w", n.Name(), err)
		}
	}

	for _, p := range s.Primitives() {
		mp := p.MeshProvider()
		if mp.VertexBuffer() != nil {
			continue
		}
		if err := u.InitMeshBuffers(mp, p.VertexData(), p.IndexData(), p.IndexCount()); err != nil {
			return fmt.Errorf("primitive %s: %w", p.Name(), err)
		}
	}

	if err := u.WriteBuffers(s.PendingWrites()); err != nil {
		return fmt.Errorf("scene %s: initial uniforms: %w", s.name, err)
	}

	s.mu.Lock()
	s.uploaded = true
	s.mu.Unlock()
	common.Logger().Info("scene uploaded",
		"scene", s.name,
		"nodes", len(s.Nodes()),
		"triangles", s.TriangleCount(),
	)
	return nil
}

func (s *scene) Uploaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploaded
}

func (s *scene) PendingWrites() []bind_group_provider.BufferWrite {
	var writes []bind_group_provider.BufferWrite
	for _, n := range s.Nodes() {
		writes = append(writes, n.PendingWrites()...)
	}
	for _, m := range s.Materials() {
		writes = append(writes, m.PendingWrites()...)
	}
	return writes
}

func (s *scene) Release() {
	for _, n := range s.Nodes() {
		n.BindGroupProvider().Release()
	}
	for _, m := range s.Materials() {
		m.BindGroupProvider().Release()
	}
	for _, p := range s.Primitives() {
		p.MeshProvider().Release()
	}
	s.mu.Lock()
	s.uploaded = false
	s.mu.Unlock()
}
