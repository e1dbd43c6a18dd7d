package model

import (
	"fmt"
	"strconv"

	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// BindGroupIndex is the bind group slot the per-node model uniform is bound at.
const BindGroupIndex = 1

// primitive is the implementation of the Primitive interface.
type primitive struct {
	name           string
	mesh           Mesh
	boundingRadius float32
	meshProvider   bind_group_provider.BindGroupProvider
}

// Primitive is one drawable piece of indexed geometry. Its mesh provider holds the vertex buffer,
// the uint32 index buffer and the index count once the scene is uploaded.
type Primitive interface {
	// Name retrieves the primitive identifier.
	Name() string

	// Mesh returns the CPU-side geometry.
	//
	// Returns:
	//   - Mesh: the vertices and indices
	Mesh() Mesh

	// VertexData returns the serialized vertex buffer contents.
	VertexData() []byte

	// IndexData returns the serialized index buffer contents.
	IndexData() []byte

	// IndexCount returns the number of indices to draw.
	IndexCount() int

	// BoundingRadius returns the radius of the sphere around the local origin enclosing every vertex.
	BoundingRadius() float32

	// MeshProvider retrieves the BindGroupProvider holding the GPU vertex and index buffers.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the mesh provider
	MeshProvider() bind_group_provider.BindGroupProvider
}

var _ Primitive = &primitive{}

// NewPrimitive creates a Primitive from a mesh.
//
// Parameters:
//   - mesh: the geometry
//   - options: a variadic list of PrimitiveBuilderOption functions
//
// Returns:
//   - Primitive: the new primitive
func NewPrimitive(mesh Mesh, options ...PrimitiveBuilderOption) Primitive {
	p := &primitive{
		name: "primitive",
		mesh: mesh,
	}
	for _, opt := range options {
		opt(p)
	}
	p.boundingRadius = mesh.BoundingRadius()
	if p.meshProvider == nil {
		p.meshProvider = bind_group_provider.NewBindGroupProvider(p.name)
	}
	return p
}

// ShaderVars returns the substitution values GPUModelSource needs.
//
// Returns:
//   - map[string]string: the ${modelGroup} value
func ShaderVars() map[string]string {
	return map[string]string{"modelGroup": strconv.Itoa(BindGroupIndex)}
}

// BindGroupLayoutDescriptor reflects the model uniform layout from GPUModelSource with vertex
// visibility, matching every pipeline whose vertex stage includes the model snippet.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: the model layout
//   - error: a pre-processing error
func BindGroupLayoutDescriptor() (wgpu.BindGroupLayoutDescriptor, error) {
	src, err := shader.NewPreProcessor(nil, ShaderVars()).Process(GPUModelSource)
	if err != nil {
		return wgpu.BindGroupLayoutDescriptor{}, fmt.Errorf("model layout: %w", err)
	}
	desc := shader.ReflectBindGroupLayouts(src, wgpu.ShaderStageVertex)[BindGroupIndex]
	desc.Label = "model_layout"
	return desc, nil
}

func (p *primitive) Name() string {
	return p.name
}

func (p *primitive) Mesh() Mesh {
	return p.mesh
}

func (p *primitive) VertexData() []byte {
	return p.mesh.VertexData()
}

func (p *primitive) IndexData() []byte {
	return p.mesh.IndexData()
}

func (p *primitive) IndexCount() int {
	return len(p.mesh.Indices)
}

func (p *primitive) BoundingRadius() float32 {
	return p.boundingRadius
}

func (p *primitive) MeshProvider() bind_group_provider.BindGroupProvider {
	return p.meshProvider
}
