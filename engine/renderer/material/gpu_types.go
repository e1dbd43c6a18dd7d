package material

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialSource declares the material bind group: the albedo texture, its sampler and the
// MaterialParams uniform. Contains the ${materialGroup} substitution point.
//
//go:embed assets/material.wgsl
var GPUMaterialSource string

// GPUMaterialParams is the GPU-aligned representation of the MaterialParams uniform.
// Size: 32 bytes.
//
// Layout:
//
//	vec4<f32> baseColor        (offset  0)
//	f32       specularStrength (offset 16)
//	f32       shininess        (offset 20)
//	f32       pad0, pad1       (offset 24)
type GPUMaterialParams struct {
	BaseColor        [4]float32
	SpecularStrength float32
	Shininess        float32
	_pad             [2]float32
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams into a 32-byte little-endian buffer.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i, v := range g.BaseColor {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(g.SpecularStrength))
	binary.LittleEndian.PutUint32(buf[20:], math.Float32bits(g.Shininess))
	return buf
}
