package scene

import (
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithNodes adds initial nodes to the scene in traversal order.
//
// Parameters:
//   - nodes: the nodes to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithNodes(nodes ...Node) SceneBuilderOption {
	return func(s *scene) {
		s.nodes = append(s.nodes, nodes...)
	}
}

// NodeBuilderOption is a functional option for configuring a Node.
type NodeBuilderOption func(n *node)

// WithPosition sets the node translation.
//
// Parameters:
//   - x, y, z: the world-space position
//
// Returns:
//   - NodeBuilderOption: option function to apply
func WithPosition(x, y, z float32) NodeBuilderOption {
	return func(n *node) {
		n.position = [3]float32{x, y, z}
	}
}

// WithRotation sets the node Euler rotation in radians.
func WithRotation(x, y, z float32) NodeBuilderOption {
	return func(n *node) {
		n.rotation = [3]float32{x, y, z}
	}
}

// WithScale sets the node scale per axis.
func WithScale(x, y, z float32) NodeBuilderOption {
	return func(n *node) {
		n.scale = [3]float32{x, y, z}
	}
}

// WithTransform sets a base transform applied before the node's position, rotation and scale.
//
// Parameters:
//   - m: the base model matrix, typically an imported node's world matrix
//
// Returns:
//   - NodeBuilderOption: option function to apply
func WithTransform(m mgl32.Mat4) NodeBuilderOption {
	return func(n *node) {
		n.base = &m
	}
}

// WithBatch appends primitives drawn with one material.
//
// Parameters:
//   - mat: the material
//   - primitives: the primitives drawn with it
//
// Returns:
//   - NodeBuilderOption: option function to apply
func WithBatch(mat material.Material, primitives ...model.Primitive) NodeBuilderOption {
	return func(n *node) {
		n.batches = append(n.batches, Batch{Material: mat, Primitives: primitives})
	}
}
