package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// triangleNormal returns the unnormalized face normal implied by counter-clockwise winding.
func triangleNormal(m Mesh, tri int) mgl32.Vec3 {
	a := mgl32.Vec3(m.Vertices[m.Indices[tri*3]].Position)
	b := mgl32.Vec3(m.Vertices[m.Indices[tri*3+1]].Position)
	c := mgl32.Vec3(m.Vertices[m.Indices[tri*3+2]].Position)
	return b.Sub(a).Cross(c.Sub(a))
}

func TestMeshGeneration(t *testing.T) {
	tests := []struct {
		name         string
		mesh         Mesh
		wantVertices int
		wantIndices  int
		wantRadius   float32
	}{
		{"cube", NewCube(2), 24, 36, float32(math.Sqrt(3))},
		{"plane single quad", NewPlane(4, 2, 1, 0), 4, 6, float32(math.Sqrt(5))},
		{"plane subdivided", NewPlane(10, 10, 4, 1), 25, 96, float32(math.Sqrt(50))},
		{"plane zero segments", NewPlane(1, 1, 0, 0), 4, 6, float32(math.Sqrt(0.5))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.mesh.Vertices) != tt.wantVertices || len(tt.mesh.Indices) != tt.wantIndices {
				t.Fatalf("got %d vertices %d indices, want %d and %d",
					len(tt.mesh.Vertices), len(tt.mesh.Indices), tt.wantVertices, tt.wantIndices)
			}
			for _, idx := range tt.mesh.Indices {
				if int(idx) >= len(tt.mesh.Vertices) {
					t.Fatalf("index %d out of range", idx)
				}
			}
			if r := tt.mesh.BoundingRadius(); math.Abs(float64(r-tt.wantRadius)) > 1e-5 {
				t.Errorf("BoundingRadius() = %v, want %v", r, tt.wantRadius)
			}
			// Every triangle winds counter-clockwise around its vertex normal.
			for tri := range len(tt.mesh.Indices) / 3 {
				n := mgl32.Vec3(tt.mesh.Vertices[tt.mesh.Indices[tri*3]].Normal)
				if triangleNormal(tt.mesh, tri).Dot(n) <= 0 {
					t.Fatalf("triangle %d winds against its normal %v", tri, n)
				}
			}
		})
	}
}

func TestMarshalVertices(t *testing.T) {
	v := GPUVertex{Position: [3]float32{1, 2, 3}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{0.5, 0.25}}
	buf := MarshalVertices([]GPUVertex{{}, v})
	if len(buf) != 64 || v.Size() != 32 {
		t.Fatalf("len = %d (Size() %d), want 64 and 32", len(buf), v.Size())
	}
	f32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
	}
	want := []float32{1, 2, 3, 0, 1, 0, 0.5, 0.25}
	for i, w := range want {
		if got := f32(32 + i*4); got != w {
			t.Errorf("float %d = %v, want %v", i, got, w)
		}
	}

	idx := MarshalIndices([]uint32{7, 1 << 20})
	if binary.LittleEndian.Uint32(idx[4:]) != 1<<20 {
		t.Errorf("MarshalIndices() = %v", idx)
	}
}

func TestGPUModelUniformNormalMatrix(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 1, 1))
	u := NewGPUModelUniform(m)
	if u.Size() != 128 || len(u.Marshal()) != 128 {
		t.Fatalf("uniform size = %d", u.Size())
	}

	// A normal on a surface tilted in the scaled axis must stay perpendicular after transform.
	tangent := mgl32.Vec3{1, 1, 0}
	normal := mgl32.Vec3{1, -1, 0}
	wt := m.Mul4x1(tangent.Vec4(0)).Vec3()
	wn := mgl32.Mat4(u.Normal).Mul4x1(normal.Vec4(0)).Vec3()
	if d := wt.Dot(wn); math.Abs(float64(d)) > 1e-5 {
		t.Errorf("transformed normal not perpendicular: dot = %v", d)
	}

	singular := NewGPUModelUniform(mgl32.Scale3D(0, 1, 1))
	if mgl32.Mat4(singular.Normal) != mgl32.Ident4() {
		t.Errorf("singular model normal matrix = %v, want identity", singular.Normal)
	}
}

func TestModelSourceReflection(t *testing.T) {
	desc, err := BindGroupLayoutDescriptor()
	if err != nil {
		t.Fatalf("BindGroupLayoutDescriptor() error = %v", err)
	}
	if len(desc.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(desc.Entries))
	}
	e := desc.Entries[0]
	if e.Visibility != wgpu.ShaderStageVertex || e.Buffer.Type != wgpu.BufferBindingTypeUniform || e.Buffer.MinBindingSize != 128 {
		t.Errorf("model entry = %+v", e)
	}

	src := GPUModelSource + `
@vertex
fn vs_main(input: VertexInput) -> @builtin(position) vec4f {
    return model_world_position(input.position);
}
`
	s, err := shader.NewShader("model_vs", shader.ShaderTypeVertex, src, shader.WithVars(ShaderVars()))
	if err != nil {
		t.Fatalf("NewShader() error = %v", err)
	}
	layout := s.VertexLayout(0)
	if len(layout) != 1 || layout[0].ArrayStride != 32 || len(layout[0].Attributes) != 3 {
		t.Fatalf("vertex layout = %+v", layout)
	}
	if a := layout[0].Attributes[2]; a.Offset != 24 || a.Format != wgpu.VertexFormatFloat32x2 {
		t.Errorf("uv attribute = %+v", a)
	}
}

func TestNewPrimitive(t *testing.T) {
	p := NewPrimitive(NewCube(1), WithName("cube"))
	if p.IndexCount() != 36 || p.MeshProvider().Label() != "cube" {
		t.Errorf("primitive = %d indices, provider %q", p.IndexCount(), p.MeshProvider().Label())
	}
	if len(p.VertexData()) != 24*32 || len(p.IndexData()) != 36*4 {
		t.Errorf("data sizes = %d, %d", len(p.VertexData()), len(p.IndexData()))
	}
}
