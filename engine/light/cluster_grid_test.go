package light

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/go-gl/mathgl/mgl32"
)

func testGrid(slicing DepthSlicing) ClusterGrid {
	return ClusterGrid{
		NumX: 16, NumY: 16, NumZ: 16,
		Width: 256, Height: 256,
		Near: 0.1, Far: 100,
		Slicing: slicing,
	}
}

func testProjection(fovY, aspect, near, far float32) mgl32.Mat4 {
	return common.Perspective(fovY, aspect, near, far)
}

func approxEqual(a, b, tol float32) bool {
	return float32(math.Abs(float64(a-b))) <= tol
}

func TestClusterGridValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ClusterGrid)
		wantErr bool
	}{
		{"valid", func(*ClusterGrid) {}, false},
		{"zero x", func(g *ClusterGrid) { g.NumX = 0 }, true},
		{"zero z", func(g *ClusterGrid) { g.NumZ = 0 }, true},
		{"zero width", func(g *ClusterGrid) { g.Width = 0 }, true},
		{"negative near", func(g *ClusterGrid) { g.Near = -1 }, true},
		{"far before near", func(g *ClusterGrid) { g.Far = 0.05 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGrid(SlicingLinear)
			tt.mutate(&g)
			err := g.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidGrid) {
					t.Fatalf("Validate() = %v, want ErrInvalidGrid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestClusterIndexRoundTrip(t *testing.T) {
	g := ClusterGrid{NumX: 3, NumY: 5, NumZ: 7}
	if got := g.ClusterCount(); got != 105 {
		t.Fatalf("ClusterCount() = %d, want 105", got)
	}
	for i := range g.ClusterCount() {
		x, y, z := g.ClusterCoords(i)
		if x >= g.NumX || y >= g.NumY || z >= g.NumZ {
			t.Fatalf("ClusterCoords(%d) = (%d, %d, %d) out of range", i, x, y, z)
		}
		if back := g.ClusterIndex(x, y, z); back != i {
			t.Fatalf("ClusterIndex(ClusterCoords(%d)) = %d", i, back)
		}
	}
}

func TestSliceDepth(t *testing.T) {
	for _, slicing := range []DepthSlicing{SlicingLinear, SlicingExponential} {
		g := testGrid(slicing)
		if got := g.SliceDepth(0); !approxEqual(got, g.Near, 1e-5) {
			t.Errorf("slicing %d: SliceDepth(0) = %v, want %v", slicing, got, g.Near)
		}
		if got := g.SliceDepth(g.NumZ); !approxEqual(got, g.Far, 1e-3) {
			t.Errorf("slicing %d: SliceDepth(NumZ) = %v, want %v", slicing, got, g.Far)
		}
		for z := range g.NumZ {
			lo, hi := g.SliceDepth(z), g.SliceDepth(z+1)
			if hi <= lo {
				t.Fatalf("slicing %d: slice %d not increasing: %v >= %v", slicing, z, lo, hi)
			}
			mid := (lo + hi) / 2
			if got := g.DepthSlice(mid); got != z {
				t.Errorf("slicing %d: DepthSlice(%v) = %d, want %d", slicing, mid, got, z)
			}
		}
	}
}

func TestDepthSliceClamps(t *testing.T) {
	for _, slicing := range []DepthSlicing{SlicingLinear, SlicingExponential} {
		g := testGrid(slicing)
		if got := g.DepthSlice(0.01); got != 0 {
			t.Errorf("slicing %d: DepthSlice(before near) = %d, want 0", slicing, got)
		}
		if got := g.DepthSlice(1000); got != g.NumZ-1 {
			t.Errorf("slicing %d: DepthSlice(past far) = %d, want %d", slicing, got, g.NumZ-1)
		}
	}
}

func TestClusterForFragment(t *testing.T) {
	g := testGrid(SlicingLinear)
	tests := []struct {
		name         string
		fx, fy, d    float32
		wantX, wantY uint32
	}{
		{"top left", 0.5, 0.5, 1, 0, 0},
		{"bottom right", 255.5, 255.5, 1, 15, 15},
		{"tile boundary", 16, 32, 1, 1, 2},
		{"outside clamps", -3, 300, 1, 0, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := g.ClusterForFragment(tt.fx, tt.fy, tt.d)
			x, y, _ := g.ClusterCoords(c)
			if x != tt.wantX || y != tt.wantY {
				t.Fatalf("ClusterForFragment(%v, %v) tile = (%d, %d), want (%d, %d)", tt.fx, tt.fy, x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestBoundsContainClusterFrustum(t *testing.T) {
	g := testGrid(SlicingExponential)
	proj := testProjection(mgl32.DegToRad(45), 1, g.Near, g.Far)

	for z := range g.NumZ {
		for y := uint32(0); y < g.NumY; y += 5 {
			for x := uint32(0); x < g.NumX; x += 3 {
				box := g.Bounds(proj, x, y, z)
				if box.Max.Z() > -g.SliceDepth(z)+1e-4 || box.Min.Z() < -g.SliceDepth(z+1)-1e-3 {
					t.Fatalf("cluster (%d,%d,%d) depth extent [%v, %v] outside slice", x, y, z, box.Min.Z(), box.Max.Z())
				}

				// The center of the tile at the middle of the slice must be inside the box.
				d := (g.SliceDepth(z) + g.SliceDepth(z+1)) / 2
				fx := (float32(x) + 0.5) / float32(g.NumX) * g.Width
				fy := (float32(y) + 0.5) / float32(g.NumY) * g.Height
				p := viewPointAtFragment(g, proj, fx, fy, d)
				for k := range 3 {
					if p[k] < box.Min[k]-1e-4 || p[k] > box.Max[k]+1e-4 {
						t.Fatalf("cluster (%d,%d,%d): center %v outside %v", x, y, z, p, box)
					}
				}
				if got := g.ClusterForFragment(fx, fy, d); got != g.ClusterIndex(x, y, z) {
					t.Fatalf("ClusterForFragment disagrees with Bounds for (%d,%d,%d)", x, y, z)
				}
			}
		}
	}
}

// viewPointAtFragment returns the view-space point at a fragment center and view distance.
func viewPointAtFragment(g ClusterGrid, proj mgl32.Mat4, fx, fy, d float32) mgl32.Vec3 {
	ndcX := fx/g.Width*2 - 1
	ndcY := 1 - fy/g.Height*2
	return mgl32.Vec3{ndcX * d / proj.At(0, 0), ndcY * d / proj.At(1, 1), -d}
}

func TestSphereIntersectsAABB(t *testing.T) {
	box := AABB{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 1, 1}}
	tests := []struct {
		name   string
		center mgl32.Vec3
		radius float32
		want   bool
	}{
		{"inside", mgl32.Vec3{0.5, 0.5, 0.5}, 0.1, true},
		{"tangent face", mgl32.Vec3{3, 0.5, 0.5}, 2, true},
		{"just outside face", mgl32.Vec3{3.01, 0.5, 0.5}, 2, false},
		{"near corner", mgl32.Vec3{2, 2, 2}, 1.8, true},
		{"outside corner", mgl32.Vec3{2, 2, 2}, 1.7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SphereIntersectsAABB(tt.center, tt.radius, box); got != tt.want {
				t.Fatalf("SphereIntersectsAABB(%v, %v) = %v, want %v", tt.center, tt.radius, got, tt.want)
			}
		})
	}
}

func TestGridBufferSizes(t *testing.T) {
	g := testGrid(SlicingLinear)
	if got := g.OffsetTableSize(); got != 4096*8 {
		t.Errorf("OffsetTableSize() = %d, want %d", got, 4096*8)
	}
	if got := g.PoolCapacity(DefaultLightsPerCluster); got != 4096*64 {
		t.Errorf("PoolCapacity() = %d, want %d", got, 4096*64)
	}
	if got := g.PoolSize(DefaultLightsPerCluster); got != 4+4096*64*4 {
		t.Errorf("PoolSize() = %d, want %d", got, 4+4096*64*4)
	}
}
