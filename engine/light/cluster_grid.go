package light

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DepthSlicing selects how a ClusterGrid partitions view depth.
type DepthSlicing uint32

const (
	// SlicingLinear divides [near, far] into equal-thickness slices. Used by the uniform 3D grid of
	// the clustered deferred strategy.
	SlicingLinear DepthSlicing = iota

	// SlicingExponential grows slice thickness geometrically with distance so screen tiles keep a
	// roughly cubic shape. Used by the Forward+ strategy.
	SlicingExponential
)

const (
	// DefaultClustersX, DefaultClustersY and DefaultClustersZ are the default grid dimensions.
	DefaultClustersX = 16
	DefaultClustersY = 16
	DefaultClustersZ = 16

	// DefaultLightsPerCluster is the average per-cluster budget used to size the light index pool.
	DefaultLightsPerCluster = 64
)

// ErrInvalidGrid is returned by ClusterGrid.Validate for unusable grid parameters.
var ErrInvalidGrid = errors.New("invalid cluster grid")

// ClusterGrid is a fixed partition of the camera view volume into NumX × NumY × NumZ clusters.
// A grid is immutable for the lifetime of the pipeline instance that owns it; its ClusterCount
// sizes every per-cluster buffer.
type ClusterGrid struct {
	NumX, NumY, NumZ uint32
	Width, Height    float32
	Near, Far        float32
	Slicing          DepthSlicing
}

// AABB is an axis-aligned view-space bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// OffsetEntry is one (start, count) record of the per-cluster offset table.
type OffsetEntry struct {
	Start uint32
	Count uint32
}

// Validate reports whether the grid can be used to build per-cluster buffers.
//
// Returns:
//   - error: a wrapped ErrInvalidGrid describing the first problem, or nil
func (g ClusterGrid) Validate() error {
	switch {
	case g.NumX == 0 || g.NumY == 0 || g.NumZ == 0:
		return fmt.Errorf("%w: dimensions %dx%dx%d", ErrInvalidGrid, g.NumX, g.NumY, g.NumZ)
	case g.Width <= 0 || g.Height <= 0:
		return fmt.Errorf("%w: screen size %vx%v", ErrInvalidGrid, g.Width, g.Height)
	case g.Near <= 0 || g.Far <= g.Near:
		return fmt.Errorf("%w: depth range [%v, %v]", ErrInvalidGrid, g.Near, g.Far)
	}
	return nil
}

// ClusterCount returns NumX·NumY·NumZ.
func (g ClusterGrid) ClusterCount() uint32 {
	return g.NumX * g.NumY * g.NumZ
}

// ClusterIndex flattens 3D cluster coordinates, x fastest.
func (g ClusterGrid) ClusterIndex(x, y, z uint32) uint32 {
	return x + y*g.NumX + z*g.NumX*g.NumY
}

// ClusterCoords is the inverse of ClusterIndex.
func (g ClusterGrid) ClusterCoords(index uint32) (x, y, z uint32) {
	x = index % g.NumX
	y = (index / g.NumX) % g.NumY
	z = index / (g.NumX * g.NumY)
	return
}

// SliceDepth returns the positive view-space distance of depth boundary z, for z in [0, NumZ].
//
// Parameters:
//   - z: the boundary index
//
// Returns:
//   - float32: the view distance of the boundary
func (g ClusterGrid) SliceDepth(z uint32) float32 {
	t := float32(z) / float32(g.NumZ)
	if g.Slicing == SlicingExponential {
		return g.Near * float32(math.Pow(float64(g.Far/g.Near), float64(t)))
	}
	return g.Near + (g.Far-g.Near)*t
}

// DepthSlice returns the slice containing a positive view-space distance, clamped to the grid.
//
// Parameters:
//   - viewDepth: the distance along -Z in view space
//
// Returns:
//   - uint32: the slice index in [0, NumZ)
func (g ClusterGrid) DepthSlice(viewDepth float32) uint32 {
	var s float32
	if g.Slicing == SlicingExponential {
		d := max(viewDepth, g.Near)
		s = float32(math.Log(float64(d/g.Near)) / math.Log(float64(g.Far/g.Near)))
	} else {
		s = (viewDepth - g.Near) / (g.Far - g.Near)
	}
	return clampIndex(s*float32(g.NumZ), g.NumZ)
}

// ClusterForFragment returns the flat index of the cluster containing a fragment.
//
// Parameters:
//   - fragX, fragY: the framebuffer coordinates, origin top-left
//   - viewDepth: the positive view-space distance of the fragment
//
// Returns:
//   - uint32: the cluster index
func (g ClusterGrid) ClusterForFragment(fragX, fragY, viewDepth float32) uint32 {
	x := clampIndex(fragX/g.Width*float32(g.NumX), g.NumX)
	y := clampIndex(fragY/g.Height*float32(g.NumY), g.NumY)
	return g.ClusterIndex(x, y, g.DepthSlice(viewDepth))
}

// Bounds returns the view-space AABB of cluster (x, y, z) for a symmetric perspective projection.
// Tile rows run top-down to match framebuffer coordinates.
//
// Parameters:
//   - proj: the camera projection matrix
//   - x, y, z: the cluster coordinates
//
// Returns:
//   - AABB: the cluster bounds
func (g ClusterGrid) Bounds(proj mgl32.Mat4, x, y, z uint32) AABB {
	nx, ny := float32(g.NumX), float32(g.NumY)
	ndcX := [2]float32{-1 + 2*float32(x)/nx, -1 + 2*float32(x+1)/nx}
	ndcY := [2]float32{1 - 2*float32(y+1)/ny, 1 - 2*float32(y)/ny}
	depth := [2]float32{g.SliceDepth(z), g.SliceDepth(z + 1)}

	box := AABB{
		Min: mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
	for i := range 8 {
		d := depth[(i>>2)&1]
		p := mgl32.Vec3{ndcX[i&1] * d / proj.At(0, 0), ndcY[(i>>1)&1] * d / proj.At(1, 1), -d}
		for k := range 3 {
			box.Min[k] = min(box.Min[k], p[k])
			box.Max[k] = max(box.Max[k], p[k])
		}
	}
	return box
}

// OffsetTableSize returns the byte size of the offset table, one (start, count) u32 pair per cluster.
func (g ClusterGrid) OffsetTableSize() uint64 {
	return uint64(g.ClusterCount()) * 8
}

// PoolCapacity returns the number of index slots for an average per-cluster budget.
func (g ClusterGrid) PoolCapacity(lightsPerCluster uint32) uint32 {
	return g.ClusterCount() * lightsPerCluster
}

// PoolSize returns the byte size of the light index pool: a leading u32 counter plus capacity slots.
func (g ClusterGrid) PoolSize(lightsPerCluster uint32) uint64 {
	return 4 + uint64(g.PoolCapacity(lightsPerCluster))*4
}

// GPU converts the grid into its uniform representation.
//
// Returns:
//   - GPUClusterGrid: the uniform ready to marshal
func (g ClusterGrid) GPU() GPUClusterGrid {
	return GPUClusterGrid{
		ScreenWidth:  g.Width,
		ScreenHeight: g.Height,
		NumX:         g.NumX,
		NumY:         g.NumY,
		NumZ:         g.NumZ,
		Near:         g.Near,
		Far:          g.Far,
		Slicing:      uint32(g.Slicing),
	}
}

// SphereIntersectsAABB is the inclusive sphere–box test used by culling: a sphere tangent to a
// face intersects the box.
//
// Parameters:
//   - center: the sphere center
//   - radius: the sphere radius
//   - box: the box
//
// Returns:
//   - bool: true if the sphere touches or overlaps the box
func SphereIntersectsAABB(center mgl32.Vec3, radius float32, box AABB) bool {
	var dist2 float32
	for k := range 3 {
		c := mgl32.Clamp(center[k], box.Min[k], box.Max[k])
		d := center[k] - c
		dist2 += d * d
	}
	return dist2 <= radius*radius
}

// clampIndex floors v and clamps it to [0, n).
func clampIndex(v float32, n uint32) uint32 {
	i := int64(math.Floor(float64(v)))
	return uint32(min(max(i, 0), int64(n)-1))
}
