package scene

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// Batch groups the primitives of a node drawn with one material.
type Batch struct {
	Material   material.Material
	Primitives []model.Primitive
}

type node struct {
	mu *sync.RWMutex

	name     string
	position [3]float32
	rotation [3]float32
	scale    [3]float32
	// base is applied before the translation, rotation and scale, for imported node transforms.
	base    *mgl32.Mat4
	batches []Batch

	dirty             bool
	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Node is a transformed group of material batches. Its BindGroupProvider holds the model uniform
// bound at model.BindGroupIndex for every primitive it draws.
type Node interface {
	// Name returns the node identifier.
	Name() string

	// Position returns the world-space translation.
	Position() [3]float32

	// Rotation returns the Euler rotation in radians, applied Y * X * Z.
	Rotation() [3]float32

	// Scale returns the per-axis scale.
	Scale() [3]float32

	// SetPosition replaces the translation and marks the model uniform for upload.
	SetPosition(p [3]float32)

	// SetRotation replaces the Euler rotation and marks the model uniform for upload.
	SetRotation(r [3]float32)

	// SetScale replaces the scale and marks the model uniform for upload.
	SetScale(s [3]float32)

	// ModelMatrix returns the local-to-world matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the column-major model matrix
	ModelMatrix() mgl32.Mat4

	// GPU returns the model uniform block for the current transform.
	//
	// Returns:
	//   - model.GPUModelUniform: the model and normal matrices
	GPU() model.GPUModelUniform

	// PendingWrites returns the model uniform write if the transform changed since the last call
	// and the provider holds the uniform buffer, and clears the dirty state.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the staged writes, or nil
	PendingWrites() []bind_group_provider.BufferWrite

	// Batches returns the node's material batches in draw order.
	Batches() []Batch

	// AddBatch appends primitives drawn with mat.
	//
	// Parameters:
	//   - mat: the material
	//   - primitives: the primitives drawn with it
	AddBatch(mat material.Material, primitives ...model.Primitive)

	// BindGroupProvider returns the provider holding the model uniform buffer.
	BindGroupProvider() bind_group_provider.BindGroupProvider
}

var _ Node = &node{}

// NewNode creates a Node at the origin with unit scale.
//
// Parameters:
//   - name: the node identifier, also the provider label
//   - options: variadic list of NodeBuilderOption functions
//
// Returns:
//   - Node: the new node
func NewNode(name string, options ...NodeBuilderOption) Node {
	n := &node{
		mu:    &sync.RWMutex{},
		name:  name,
		scale: [3]float32{1, 1, 1},
		dirty: true,
	}
	for _, opt := range options {
		opt(n)
	}
	if n.bindGroupProvider == nil {
		n.bindGroupProvider = bind_group_provider.NewBindGroupProvider("node_" + name)
	}
	return n
}

func (n *node) Name() string {
	return n.name
}

func (n *node) Position() [3]float32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.position
}

func (n *node) Rotation() [3]float32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.rotation
}

func (n *node) Scale() [3]float32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.scale
}

func (n *node) SetPosition(p [3]float32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.position = p
	n.dirty = true
}

func (n *node) SetRotation(r [3]float32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rotation = r
	n.dirty = true
}

func (n *node) SetScale(s [3]float32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scale = s
	n.dirty = true
}

func (n *node) ModelMatrix() mgl32.Mat4 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.modelMatrix()
}

func (n *node) modelMatrix() mgl32.Mat4 {
	m := mgl32.Translate3D(n.position[0], n.position[1], n.position[2]).
		Mul4(mgl32.HomogRotate3DY(n.rotation[1])).
		Mul4(mgl32.HomogRotate3DX(n.rotation[0])).
		Mul4(mgl32.HomogRotate3DZ(n.rotation[2])).
		Mul4(mgl32.Scale3D(n.scale[0], n.scale[1], n.scale[2]))
	if n.base != nil {
		return m.Mul4(*n.base)
	}
	return m
}

func (n *node) GPU() model.GPUModelUniform {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return model.NewGPUModelUniform(n.modelMatrix())
}

func (n *node) PendingWrites() []bind_group_provider.BufferWrite {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.dirty || n.bindGroupProvider.Buffer(0) == nil {
		return nil
	}
	n.dirty = false
	u := model.NewGPUModelUniform(n.modelMatrix())
	return []bind_group_provider.BufferWrite{{
		Provider: n.bindGroupProvider,
		Binding:  0,
		Data:     u.Marshal(),
	}}
}

func (n *node) Batches() []Batch {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Batch(nil), n.batches...)
}

func (n *node) AddBatch(mat material.Material, primitives ...model.Primitive) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, Batch{Material: mat, Primitives: primitives})
}

func (n *node) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return n.bindGroupProvider
}
