package model

import (
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
)

// PrimitiveBuilderOption is a functional option for configuring a Primitive via NewPrimitive.
type PrimitiveBuilderOption func(*primitive)

// WithName sets the primitive identifier, also used as the default mesh provider label.
//
// Parameters:
//   - name: the primitive name
//
// Returns:
//   - PrimitiveBuilderOption: a function that applies the name option to a primitive
func WithName(name string) PrimitiveBuilderOption {
	return func(p *primitive) {
		p.name = name
	}
}

// WithMeshProvider sets the provider that receives the GPU vertex and index buffers.
func WithMeshProvider(provider bind_group_provider.BindGroupProvider) PrimitiveBuilderOption {
	return func(p *primitive) {
		p.meshProvider = provider
	}
}
