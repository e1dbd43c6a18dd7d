package material

import (
	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor is an option builder that sets the RGBA tint multiplied into the albedo texture.
//
// Parameters:
//   - color: the base color as RGBA float32 values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(color [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithSpecular is an option builder that sets the Blinn-Phong specular parameters.
//
// Parameters:
//   - strength: the specular intensity
//   - shininess: the specular exponent
//
// Returns:
//   - MaterialBuilderOption: a function that applies the specular option to a material
func WithSpecular(strength, shininess float32) MaterialBuilderOption {
	return func(m *material) {
		m.specularStrength = strength
		m.shininess = shininess
	}
}

// WithAlbedo is an option builder that sets the albedo texture.
//
// Parameters:
//   - tex: the staged RGBA8 texture
//
// Returns:
//   - MaterialBuilderOption: a function that applies the albedo option to a material
func WithAlbedo(tex common.TextureStagingData) MaterialBuilderOption {
	return func(m *material) {
		m.albedo = tex
	}
}

// WithSampler is an option builder that sets the albedo sampler configuration.
func WithSampler(s common.SamplerStagingData) MaterialBuilderOption {
	return func(m *material) {
		m.sampler = s
	}
}

// WithBindGroupProvider is an option builder that sets the provider holding the material's GPU resources.
func WithBindGroupProvider(provider bind_group_provider.BindGroupProvider) MaterialBuilderOption {
	return func(m *material) {
		m.bindGroupProvider = provider
	}
}
