package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestGPUCameraUniformLayout(t *testing.T) {
	u := GPUCameraUniform{
		Position:   [3]float32{1, 2, 3},
		Near:       0.5,
		Resolution: [2]float32{1920, 1080},
		Far:        250,
	}
	u.ViewProj[0] = 7
	u.InvProj[15] = 9

	buf := u.Marshal()
	if len(buf) != 288 || u.Size() != 288 {
		t.Fatalf("uniform size = %d (Size() %d), want 288", len(buf), u.Size())
	}

	f32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
	}
	tests := []struct {
		name   string
		offset int
		want   float32
	}{
		{"viewProj[0]", 0, 7},
		{"invProj[15]", 192 + 60, 9},
		{"position.x", 256, 1},
		{"position.z", 264, 3},
		{"near", 268, 0.5},
		{"resolution.x", 272, 1920},
		{"resolution.y", 276, 1080},
		{"far", 280, 250},
		{"pad", 284, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f32(tt.offset); got != tt.want {
				t.Errorf("offset %d = %v, want %v", tt.offset, got, tt.want)
			}
		})
	}
}

func TestCameraMatrices(t *testing.T) {
	ctrl := NewCameraController(WithTarget(0, 0, 0), WithRadius(10), WithAzimuth(0), WithElevation(0))
	c := NewCamera(WithController(ctrl), WithNear(0.5), WithFar(50), WithResolution(800, 400))

	if got := c.Position(); !approx(got[0], 0) || !approx(got[1], 0) || !approx(got[2], 10) {
		t.Fatalf("Position() = %v, want (0, 0, 10)", got)
	}
	if !approx(c.Aspect(), 2) {
		t.Errorf("Aspect() = %v, want 2", c.Aspect())
	}

	target := c.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !approx(target.Z(), -10) {
		t.Errorf("view-space target z = %v, want -10", target.Z())
	}

	depth := func(viewZ float32) float32 {
		clip := c.Projection().Mul4x1(mgl32.Vec4{0, 0, viewZ, 1})
		return clip.Z() / clip.W()
	}
	if d := depth(-0.5); !approx(d, 0) {
		t.Errorf("near plane depth = %v, want 0", d)
	}
	if d := depth(-50); !approx(d, 1) {
		t.Errorf("far plane depth = %v, want 1", d)
	}

	id := c.InverseProjection().Mul4(c.Projection())
	if !id.ApproxEqualThreshold(mgl32.Ident4(), 1e-4) {
		t.Errorf("InverseProjection * Projection = %v", id)
	}
	if !c.ViewProjection().ApproxEqualThreshold(c.Projection().Mul4(c.View()), 1e-4) {
		t.Error("ViewProjection != Projection * View")
	}

	u := c.GPU()
	if u.Resolution != [2]float32{800, 400} || u.Near != 0.5 || u.Far != 50 {
		t.Errorf("GPU() = resolution %v near %v far %v", u.Resolution, u.Near, u.Far)
	}
}

func TestCameraSetResolutionUpdatesProjection(t *testing.T) {
	c := NewCamera(WithController(NewCameraController()))
	before := c.Projection()
	c.SetResolution(1000, 1000)
	if !approx(c.Aspect(), 1) {
		t.Fatalf("Aspect() = %v, want 1", c.Aspect())
	}
	after := c.Projection()
	if approx(before[0], after[0]) {
		t.Error("projection x scale unchanged after resolution change")
	}
	if w, h := c.Resolution(); w != 1000 || h != 1000 {
		t.Errorf("Resolution() = %d x %d", w, h)
	}
}

func TestCameraPendingWritesWithoutBuffer(t *testing.T) {
	c := NewCamera()
	if writes := c.PendingWrites(); writes != nil {
		t.Errorf("PendingWrites() = %v, want nil", writes)
	}
}

func TestCameraControllerLimits(t *testing.T) {
	tests := []struct {
		name          string
		apply         func(CameraController)
		wantRadius    float32
		wantElevation float32
	}{
		{
			name:          "zoom past min radius",
			apply:         func(cc CameraController) { cc.Zoom(100) },
			wantRadius:    2,
			wantElevation: 0,
		},
		{
			name:          "zoom past max radius",
			apply:         func(cc CameraController) { cc.Zoom(-100) },
			wantRadius:    20,
			wantElevation: 0,
		},
		{
			name:          "orbit past max elevation",
			apply:         func(cc CameraController) { cc.Orbit(0, 10) },
			wantRadius:    10,
			wantElevation: float32(math.Pi/2 - 0.1),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := NewCameraController(WithRadius(10), WithElevation(0), WithRadiusLimits(2, 20))
			tt.apply(cc)
			if !approx(cc.Radius(), tt.wantRadius) {
				t.Errorf("Radius() = %v, want %v", cc.Radius(), tt.wantRadius)
			}
			if !approx(cc.Elevation(), tt.wantElevation) {
				t.Errorf("Elevation() = %v, want %v", cc.Elevation(), tt.wantElevation)
			}
		})
	}
}

func TestCameraControllerPan(t *testing.T) {
	cc := NewCameraController(WithTarget(0, 0, 0), WithAzimuth(0), WithElevation(0), WithRadius(5))
	cc.Pan(2, 1)

	tx, ty, tz := cc.Target()
	if !approx(tx, 2) || !approx(ty, 1) || !approx(tz, 0) {
		t.Errorf("Target() = (%v, %v, %v), want (2, 1, 0)", tx, ty, tz)
	}
	px, py, pz := cc.Position()
	if !approx(px, 2) || !approx(py, 1) || !approx(pz, 5) {
		t.Errorf("Position() = (%v, %v, %v), want (2, 1, 5)", px, py, pz)
	}
}
