package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPULightSource is the canonical WGSL definition of the Light and LightSet structs.
// Matches GPULight and GPULightSetHeader exactly.
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPUClusterSource is the canonical WGSL definition of the ClusterGrid uniform and the
// cluster addressing helpers shared by the culling and shading passes. Matches GPUClusterGrid
// and the ClusterGrid methods exactly.
//
//go:embed assets/cluster.wgsl
var GPUClusterSource string

// GPUShadingSource is the canonical WGSL lighting model. Shade implements the same math on the CPU.
// Contains ${ambientR}, ${ambientG}, ${ambientB} and ${lightRadius} substitution points.
//
//go:embed assets/shading.wgsl
var GPUShadingSource string

// GPULight is the GPU-aligned representation of a single point light.
// Size: 32 bytes (vec3 + pad, vec3 + pad).
type GPULight struct {
	Position [3]float32 // offset  0
	_pad0    float32    // offset 12
	Color    [3]float32 // offset 16
	_pad1    float32    // offset 28
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, 32)
	g.marshalInto(buf)
	return buf
}

func (g *GPULight) marshalInto(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], 0)
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Color[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Color[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.Color[2]))
	binary.LittleEndian.PutUint32(buf[28:32], 0)
}

// GPULightSetHeader is the header preceding the light array in the light storage buffer.
// The lights array is 16-byte aligned, so the header occupies 16 bytes.
type GPULightSetHeader struct {
	NumLights uint32 // offset 0
	_pad      [3]uint32
}

// Size returns the size of the GPULightSetHeader struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (h *GPULightSetHeader) Size() int {
	return int(unsafe.Sizeof(*h))
}

// Marshal serializes the header into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (h *GPULightSetHeader) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], h.NumLights)
	return buf
}

// LightSetBufferSize returns the byte size of a light storage buffer holding maxLights lights.
//
// Parameters:
//   - maxLights: the light capacity
//
// Returns:
//   - uint64: header size plus maxLights light records
func LightSetBufferSize(maxLights int) uint64 {
	return uint64((&GPULightSetHeader{}).Size()) + uint64(maxLights)*uint64((&GPULight{}).Size())
}

// MarshalLightSet marshals every light in lights behind a header carrying numLights. The whole
// slice is written so later increases of the logical count find valid data already in place.
//
// The buffer layout is:
//
//	[GPULightSetHeader (16 bytes)] [GPULight × len(lights) (32 bytes each)]
//
// Parameters:
//   - lights: the backing light storage
//   - numLights: the logical count written into the header
//
// Returns:
//   - []byte: the marshaled buffer ready for GPU upload
func MarshalLightSet(lights []Light, numLights int) []byte {
	buf := make([]byte, LightSetBufferSize(len(lights)))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(numLights))

	offset := (&GPULightSetHeader{}).Size()
	for _, l := range lights {
		gpu := GPULight{Position: l.Position, Color: l.Color}
		gpu.marshalInto(buf[offset : offset+32])
		offset += 32
	}
	return buf
}

// GPUClusterGrid is the GPU-aligned uniform describing a cluster grid.
// Matches the WGSL ClusterGrid struct in GPUClusterSource.
// Size: 32 bytes.
//
// Layout:
//
//	f32 screenWidth   (offset  0)
//	f32 screenHeight  (offset  4)
//	u32 numX          (offset  8)
//	u32 numY          (offset 12)
//	u32 numZ          (offset 16)
//	f32 near          (offset 20)
//	f32 far           (offset 24)
//	u32 slicing       (offset 28)
type GPUClusterGrid struct {
	ScreenWidth  float32
	ScreenHeight float32
	NumX         uint32
	NumY         uint32
	NumZ         uint32
	Near         float32
	Far          float32
	Slicing      uint32
}

// Size returns the size of the GPUClusterGrid struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUClusterGrid) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUClusterGrid into a 32-byte little-endian buffer.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPUClusterGrid) Marshal() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.ScreenWidth))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.ScreenHeight))
	binary.LittleEndian.PutUint32(buf[8:12], g.NumX)
	binary.LittleEndian.PutUint32(buf[12:16], g.NumY)
	binary.LittleEndian.PutUint32(buf[16:20], g.NumZ)
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Near))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.Far))
	binary.LittleEndian.PutUint32(buf[28:32], g.Slicing)
	return buf
}

// GPUMoveLightsUniform is the uniform read by the light animation compute pass.
// Size: 32 bytes.
//
// Layout:
//
//	vec3<f32> boundsMin (offset  0)
//	f32       time      (offset 12)
//	vec3<f32> boundsMax (offset 16)
//	f32       speed     (offset 28)
type GPUMoveLightsUniform struct {
	BoundsMin [3]float32
	Time      float32
	BoundsMax [3]float32
	Speed     float32
}

// Size returns the size of the GPUMoveLightsUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (u *GPUMoveLightsUniform) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the GPUMoveLightsUniform into a 32-byte little-endian buffer.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (u *GPUMoveLightsUniform) Marshal() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(u.BoundsMin[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(u.BoundsMin[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(u.BoundsMin[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(u.Time))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(u.BoundsMax[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(u.BoundsMax[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(u.BoundsMax[2]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(u.Speed))
	return buf
}
