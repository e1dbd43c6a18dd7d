package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraSource is the canonical WGSL definition of the Camera uniform struct and the depth
// linearization helper. Matches GPUCameraUniform exactly.
//
//go:embed assets/camera.wgsl
var GPUCameraSource string

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// Size: 288 bytes (WGSL uniform layout).
type GPUCameraUniform struct {
	ViewProj   [16]float32 // offset   0
	View       [16]float32 // offset  64
	Proj       [16]float32 // offset 128
	InvProj    [16]float32 // offset 192
	Position   [3]float32  // offset 256
	Near       float32     // offset 268
	Resolution [2]float32  // offset 272
	Far        float32     // offset 280
	_pad       float32     // offset 284
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (288)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	putF32 := func(offset int, v float32) {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
	}
	for i := range 16 {
		putF32(i*4, g.ViewProj[i])
		putF32(64+i*4, g.View[i])
		putF32(128+i*4, g.Proj[i])
		putF32(192+i*4, g.InvProj[i])
	}
	for i := range 3 {
		putF32(256+i*4, g.Position[i])
	}
	putF32(268, g.Near)
	putF32(272, g.Resolution[0])
	putF32(276, g.Resolution[1])
	putF32(280, g.Far)
	return buf
}
