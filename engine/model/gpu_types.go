package model

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// GPUModelSource is the canonical WGSL definition of the vertex input layout and the per-node
// ModelUniform, with its bind group declaration. Matches GPUVertex and GPUModelUniform exactly.
// Contains the ${modelGroup} substitution point.
//
//go:embed assets/model.wgsl
var GPUModelSource string

// GPUVertex is a single interleaved vertex as the vertex buffer stores it.
// Size: 32 bytes (position, normal, uv; tightly packed).
type GPUVertex struct {
	Position [3]float32 // offset  0
	Normal   [3]float32 // offset 12
	UV       [2]float32 // offset 24
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (v *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// MarshalVertices serializes vertices into a tightly packed little-endian vertex buffer.
//
// Parameters:
//   - vertices: the vertices to serialize
//
// Returns:
//   - []byte: 32 bytes per vertex
func MarshalVertices(vertices []GPUVertex) []byte {
	buf := make([]byte, len(vertices)*32)
	for i, v := range vertices {
		off := i * 32
		for j := range 3 {
			binary.LittleEndian.PutUint32(buf[off+j*4:], math.Float32bits(v.Position[j]))
			binary.LittleEndian.PutUint32(buf[off+12+j*4:], math.Float32bits(v.Normal[j]))
		}
		binary.LittleEndian.PutUint32(buf[off+24:], math.Float32bits(v.UV[0]))
		binary.LittleEndian.PutUint32(buf[off+28:], math.Float32bits(v.UV[1]))
	}
	return buf
}

// MarshalIndices serializes a uint32 index list.
func MarshalIndices(indices []uint32) []byte {
	buf := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

// GPUModelUniform is the GPU-aligned representation of the per-node model uniform.
// Size: 128 bytes.
//
// Layout:
//
//	mat4x4<f32> model  (offset  0)
//	mat4x4<f32> normal (offset 64) inverse transpose of model
type GPUModelUniform struct {
	Model  [16]float32
	Normal [16]float32
}

// NewGPUModelUniform builds the uniform for a model matrix. A singular matrix gets an identity
// normal matrix.
//
// Parameters:
//   - m: the column-major model matrix
//
// Returns:
//   - GPUModelUniform: the uniform block
func NewGPUModelUniform(m mgl32.Mat4) GPUModelUniform {
	normal := mgl32.Ident4()
	if m.Det() != 0 {
		normal = m.Inv().Transpose()
	}
	return GPUModelUniform{Model: m, Normal: normal}
}

// Size returns the size of the GPUModelUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (128)
func (u *GPUModelUniform) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the GPUModelUniform into a 128-byte little-endian buffer.
//
// Returns:
//   - []byte: 128-byte buffer ready for GPU upload
func (u *GPUModelUniform) Marshal() []byte {
	buf := make([]byte, u.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(u.Model[i]))
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(u.Normal[i]))
	}
	return buf
}
