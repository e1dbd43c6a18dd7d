package material

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// BindGroupIndex is the bind group slot every material is bound at.
const BindGroupIndex = 2

// Bindings within the material bind group.
const (
	BindingAlbedoTexture = 0
	BindingAlbedoSampler = 1
	BindingParams        = 2
)

const (
	DefaultSpecularStrength float32 = 0.5
	DefaultShininess        float32 = 32
)

type material struct {
	mu *sync.RWMutex

	name             string
	baseColor        [4]float32
	specularStrength float32
	shininess        float32
	albedo           common.TextureStagingData
	sampler          common.SamplerStagingData

	dirty             bool
	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Material describes the surface attributes of the primitives drawn with it: an albedo texture
// tinted by a base color, and the Blinn-Phong specular parameters. Its GPU resources live in a
// BindGroupProvider laid out as GPUMaterialSource declares.
type Material interface {
	// Name returns the material identifier.
	Name() string

	// BaseColor returns the RGBA tint multiplied into the albedo texture.
	//
	// Returns:
	//   - [4]float32: the base color
	BaseColor() [4]float32

	// SpecularStrength returns the specular intensity.
	SpecularStrength() float32

	// Shininess returns the Blinn-Phong exponent.
	Shininess() float32

	// Albedo returns the staged albedo texture.
	//
	// Returns:
	//   - common.TextureStagingData: the RGBA8 pixels to upload
	Albedo() common.TextureStagingData

	// Sampler returns the staged sampler configuration.
	Sampler() common.SamplerStagingData

	// GPU returns the uniform block uploaded to the params binding.
	//
	// Returns:
	//   - GPUMaterialParams: the current parameters
	GPU() GPUMaterialParams

	// PendingWrites returns the params write if the parameters changed since the last call and the
	// provider holds the params buffer, and clears the dirty state.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the staged writes, or nil
	PendingWrites() []bind_group_provider.BufferWrite

	// SetBaseColor replaces the base color.
	SetBaseColor(color [4]float32)

	// SetSpecular replaces the specular parameters.
	//
	// Parameters:
	//   - strength: the specular intensity
	//   - shininess: the Blinn-Phong exponent
	SetSpecular(strength, shininess float32)

	// BindGroupProvider returns the provider holding the material's texture, sampler and params buffer.
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// SetBindGroupProvider replaces the provider and marks the params for upload.
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)
}

var _ Material = &material{}

// NewMaterial creates a Material. Without options it is a white, moderately glossy surface.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions
//
// Returns:
//   - Material: the new material
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		mu:               &sync.RWMutex{},
		name:             "material",
		baseColor:        [4]float32{1, 1, 1, 1},
		specularStrength: DefaultSpecularStrength,
		shininess:        DefaultShininess,
		albedo:           common.SolidTexture(255, 255, 255, 255),
		dirty:            true,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.bindGroupProvider == nil {
		m.bindGroupProvider = bind_group_provider.NewBindGroupProvider("material_" + m.name)
	}
	return m
}

// ShaderVars returns the substitution values GPUMaterialSource needs.
//
// Returns:
//   - map[string]string: the ${materialGroup} value
func ShaderVars() map[string]string {
	return map[string]string{"materialGroup": strconv.Itoa(BindGroupIndex)}
}

// BindGroupLayoutDescriptor reflects the material bind group layout from GPUMaterialSource with
// fragment visibility. Pipelines that include the material snippet in their fragment stage declare
// an identical layout, so one bind group per material serves all of them.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: the material layout
//   - error: a pre-processing error
func BindGroupLayoutDescriptor() (wgpu.BindGroupLayoutDescriptor, error) {
	src, err := shader.NewPreProcessor(nil, ShaderVars()).Process(GPUMaterialSource)
	if err != nil {
		return wgpu.BindGroupLayoutDescriptor{}, fmt.Errorf("material layout: %w", err)
	}
	desc := shader.ReflectBindGroupLayouts(src, wgpu.ShaderStageFragment)[BindGroupIndex]
	desc.Label = "material_layout"
	return desc, nil
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.baseColor
}

func (m *material) SpecularStrength() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.specularStrength
}

func (m *material) Shininess() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shininess
}

func (m *material) Albedo() common.TextureStagingData {
	return m.albedo
}

func (m *material) Sampler() common.SamplerStagingData {
	return m.sampler
}

func (m *material) GPU() GPUMaterialParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gpu()
}

func (m *material) gpu() GPUMaterialParams {
	return GPUMaterialParams{
		BaseColor:        m.baseColor,
		SpecularStrength: m.specularStrength,
		Shininess:        m.shininess,
	}
}

func (m *material) PendingWrites() []bind_group_provider.BufferWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty || m.bindGroupProvider == nil || m.bindGroupProvider.Buffer(BindingParams) == nil {
		return nil
	}
	m.dirty = false
	params := m.gpu()
	return []bind_group_provider.BufferWrite{{
		Provider: m.bindGroupProvider,
		Binding:  BindingParams,
		Data:     params.Marshal(),
	}}
}

func (m *material) SetBaseColor(color [4]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseColor = color
	m.dirty = true
}

func (m *material) SetSpecular(strength, shininess float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.specularStrength = strength
	m.shininess = shininess
	m.dirty = true
}

func (m *material) BindGroupProvider() bind_group_provider.BindGroupProvider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bindGroupProvider
}

func (m *material) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindGroupProvider = provider
	m.dirty = true
}
