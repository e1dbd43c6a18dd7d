package light

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl32"
)

// CullMode selects how the reference culler reserves index pool slots.
type CullMode int

const (
	// CullAtomicAppend reserves each cluster's range with one atomic add on a shared counter, in
	// whatever order clusters finish. This is the same scheme the GPU culling pass uses; cluster
	// start offsets vary between runs.
	CullAtomicAppend CullMode = iota

	// CullCompact counts every cluster first and then assigns ranges with an ordered prefix sum,
	// giving identical offsets for identical input.
	CullCompact
)

// CullResult holds the offset table and index pool produced by one culling run.
type CullResult struct {
	// Offsets holds one entry per cluster.
	Offsets []OffsetEntry
	// Pool holds Capacity index slots. Slots outside every cluster range are zero.
	Pool []uint32
	// Counter is the final value of the shared append counter. It may exceed Capacity when the
	// pool overflowed.
	Counter uint32
	// Capacity is the number of index slots in Pool.
	Capacity uint32
	// LightsProcessed is the number of lights tested against every cluster.
	LightsProcessed int
	// Overflowed reports that at least one cluster lost indices to the capacity limit.
	Overflowed bool
}

// ClusterLights returns the pool sub-range of cluster c.
//
// Parameters:
//   - c: the flat cluster index
//
// Returns:
//   - []uint32: the light indices assigned to the cluster
func (r CullResult) ClusterLights(c uint32) []uint32 {
	e := r.Offsets[c]
	return r.Pool[e.Start : e.Start+e.Count]
}

// cullerImpl is the implementation of the Culler interface.
type cullerImpl struct {
	grid             ClusterGrid
	mode             CullMode
	radius           float32
	lightsPerCluster uint32
	capacity         uint32
	workers          int

	pool worker.DynamicWorkerPool
}

// Culler is the CPU reference of the clustered light culling pass. It produces the same offset
// table and index pool contract as the GPU compute pass: for every cluster c the pool entries
// [Offsets[c].Start, Offsets[c].Start+Offsets[c].Count) are exactly the lights whose sphere
// intersects the cluster bounds, up to the pool capacity.
type Culler interface {
	// Cull assigns lights to clusters for one camera.
	//
	// Parameters:
	//   - lights: the active lights, positions in world space
	//   - view: the camera view matrix
	//   - proj: the camera projection matrix
	//
	// Returns:
	//   - CullResult: the offset table and index pool
	Cull(lights []Light, view, proj mgl32.Mat4) CullResult

	// Grid returns the cluster grid the culler was built for.
	//
	// Returns:
	//   - ClusterGrid: the grid
	Grid() ClusterGrid

	// Capacity returns the number of slots in the index pool.
	//
	// Returns:
	//   - uint32: the pool capacity
	Capacity() uint32
}

var _ Culler = &cullerImpl{}

// NewCuller creates a reference Culler for the given grid.
//
// Parameters:
//   - grid: the cluster grid
//   - opts: variadic list of CullerBuilderOption functions to configure the culler
//
// Returns:
//   - Culler: the new culler
func NewCuller(grid ClusterGrid, opts ...CullerBuilderOption) Culler {
	c := &cullerImpl{
		grid:             grid,
		mode:             CullAtomicAppend,
		radius:           DefaultLightRadius,
		lightsPerCluster: DefaultLightsPerCluster,
		workers:          max(runtime.NumCPU()-1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.capacity == 0 {
		c.capacity = grid.PoolCapacity(c.lightsPerCluster)
	}
	c.pool = worker.NewDynamicWorkerPool(c.workers, 256, 1*time.Second)
	return c
}

func (c *cullerImpl) Grid() ClusterGrid {
	return c.grid
}

func (c *cullerImpl) Capacity() uint32 {
	return c.capacity
}

func (c *cullerImpl) Cull(lights []Light, view, proj mgl32.Mat4) CullResult {
	clusters := c.grid.ClusterCount()
	result := CullResult{
		Offsets:         make([]OffsetEntry, clusters),
		Pool:            make([]uint32, c.capacity),
		Capacity:        c.capacity,
		LightsProcessed: len(lights),
	}

	centers := make([]mgl32.Vec3, len(lights))
	for i, l := range lights {
		centers[i] = view.Mul4x1(mgl32.Vec3(l.Position).Vec4(1)).Vec3()
	}

	switch c.mode {
	case CullCompact:
		c.cullCompact(centers, proj, &result)
	default:
		c.cullAtomic(centers, proj, &result)
	}
	return result
}

// clusterHits appends the indices of every light intersecting cluster index to dst.
func (c *cullerImpl) clusterHits(dst []uint32, centers []mgl32.Vec3, proj mgl32.Mat4, index uint32) []uint32 {
	x, y, z := c.grid.ClusterCoords(index)
	box := c.grid.Bounds(proj, x, y, z)
	for i, center := range centers {
		if SphereIntersectsAABB(center, c.radius, box) {
			dst = append(dst, uint32(i))
		}
	}
	return dst
}

// forEachRange splits [0, clusters) into one contiguous range per worker and blocks until fn has
// run on all of them.
func (c *cullerImpl) forEachRange(clusters uint32, fn func(start, end uint32)) {
	chunk := (clusters + uint32(c.workers) - 1) / uint32(c.workers)
	if chunk == 0 {
		return
	}

	var wg sync.WaitGroup
	taskID := 0
	for start := uint32(0); start < clusters; start += chunk {
		end := min(start+chunk, clusters)
		wg.Add(1)
		s, e := start, end
		id := taskID
		taskID++
		c.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				fn(s, e)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// cullAtomic mirrors the GPU pass: each cluster counts its lights, reserves a range with a single
// atomic add, and writes only the part of the range that fits in the pool.
func (c *cullerImpl) cullAtomic(centers []mgl32.Vec3, proj mgl32.Mat4, result *CullResult) {
	var counter atomic.Uint32
	var overflowed atomic.Bool

	c.forEachRange(c.grid.ClusterCount(), func(start, end uint32) {
		hits := make([]uint32, 0, 64)
		for index := start; index < end; index++ {
			hits = c.clusterHits(hits[:0], centers, proj, index)
			n := uint32(len(hits))
			if n == 0 {
				continue
			}
			first := counter.Add(n) - n
			stored := clampRange(first, n, c.capacity)
			if stored < n {
				overflowed.Store(true)
			}
			copy(result.Pool[min(first, c.capacity):], hits[:stored])
			result.Offsets[index] = OffsetEntry{Start: min(first, c.capacity), Count: stored}
		}
	})

	result.Counter = counter.Load()
	result.Overflowed = overflowed.Load()
}

// cullCompact counts in parallel, assigns ranges in cluster order, then fills them in parallel.
func (c *cullerImpl) cullCompact(centers []mgl32.Vec3, proj mgl32.Mat4, result *CullResult) {
	clusters := c.grid.ClusterCount()
	hitsPerCluster := make([][]uint32, clusters)

	c.forEachRange(clusters, func(start, end uint32) {
		for index := start; index < end; index++ {
			hitsPerCluster[index] = c.clusterHits(nil, centers, proj, index)
		}
	})

	var next uint32
	for index, hits := range hitsPerCluster {
		n := uint32(len(hits))
		stored := clampRange(next, n, c.capacity)
		if stored < n {
			result.Overflowed = true
		}
		if n > 0 {
			result.Offsets[index] = OffsetEntry{Start: min(next, c.capacity), Count: stored}
		}
		next += n
	}
	result.Counter = next

	c.forEachRange(clusters, func(start, end uint32) {
		for index := start; index < end; index++ {
			e := result.Offsets[index]
			copy(result.Pool[e.Start:e.Start+e.Count], hitsPerCluster[index][:e.Count])
		}
	})
}

// clampRange returns how many of n slots starting at first fit below capacity.
func clampRange(first, n, capacity uint32) uint32 {
	if first >= capacity {
		return 0
	}
	return min(n, capacity-first)
}
