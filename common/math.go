package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes reinterprets a slice of fixed-size values as raw bytes for GPU uploads.
// The returned slice aliases the input; it must not outlive or be mutated alongside it.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(unsafe.Sizeof(zero))*len(data))
}

// Perspective returns a right-handed projection that maps view depth [near, far] onto WebGPU
// clip depth [0, 1]. mgl32.Perspective targets the OpenGL [-1, 1] range instead.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport width over height
//   - near, far: clip plane distances, 0 < near < far
//
// Returns:
//   - mgl32.Mat4: the column-major projection
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := float32(1 / math.Tan(float64(fovY)/2))
	return mgl32.Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, far / (near - far), -1,
		0, 0, near * far / (near - far), 0,
	}
}

// LinearizeDepth converts a depth buffer value written with Perspective back into a positive
// view-space distance.
func LinearizeDepth(depth, near, far float32) float32 {
	return (near * far) / (far - depth*(far-near))
}
