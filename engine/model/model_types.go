package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is indexed triangle geometry in the GPUVertex layout, counter-clockwise front faces.
type Mesh struct {
	Vertices []GPUVertex
	Indices  []uint32
}

// VertexData returns the serialized vertex buffer contents.
func (m Mesh) VertexData() []byte {
	return MarshalVertices(m.Vertices)
}

// IndexData returns the serialized uint32 index buffer contents.
func (m Mesh) IndexData() []byte {
	return MarshalIndices(m.Indices)
}

// BoundingRadius returns the distance from the local origin to the farthest vertex.
//
// Returns:
//   - float32: the bounding sphere radius
func (m Mesh) BoundingRadius() float32 {
	var r float32
	for _, v := range m.Vertices {
		r = max(r, mgl32.Vec3(v.Position).Len())
	}
	return r
}

// cubeFaces lists the outward normal and the in-plane tangent axes of each cube face. u x v equals
// the normal so the winding comes out counter-clockwise seen from outside.
var cubeFaces = [6]struct {
	normal, u, v mgl32.Vec3
}{
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
}

// NewCube builds an axis-aligned cube centred on the origin with per-face normals and UVs.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - Mesh: 24 vertices and 36 indices
func NewCube(size float32) Mesh {
	h := size / 2
	mesh := Mesh{
		Vertices: make([]GPUVertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range cubeFaces {
		base := uint32(len(mesh.Vertices))
		for _, c := range corners {
			p := f.normal.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1])).Mul(h)
			mesh.Vertices = append(mesh.Vertices, GPUVertex{
				Position: p,
				Normal:   f.normal,
				UV:       [2]float32{(c[0] + 1) / 2, (1 - c[1]) / 2},
			})
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return mesh
}

// NewPlane builds a horizontal plane at y = 0 facing +Y, subdivided into segments x segments quads.
// UVs repeat once per unit of uvScale.
//
// Parameters:
//   - width: the extent along X
//   - depth: the extent along Z
//   - segments: quads per side (values below 1 are treated as 1)
//   - uvScale: world units per texture repeat (values <= 0 stretch one repeat over the plane)
//
// Returns:
//   - Mesh: (segments+1)^2 vertices and 6*segments^2 indices
func NewPlane(width, depth float32, segments int, uvScale float32) Mesh {
	segments = max(segments, 1)
	n := segments + 1
	mesh := Mesh{
		Vertices: make([]GPUVertex, 0, n*n),
		Indices:  make([]uint32, 0, segments*segments*6),
	}
	for j := range n {
		for i := range n {
			s := float32(i) / float32(segments)
			t := float32(j) / float32(segments)
			x := (s - 0.5) * width
			z := (t - 0.5) * depth
			uv := [2]float32{s, t}
			if uvScale > 0 {
				uv = [2]float32{(x + width/2) / uvScale, (z + depth/2) / uvScale}
			}
			mesh.Vertices = append(mesh.Vertices, GPUVertex{
				Position: [3]float32{x, 0, z},
				Normal:   [3]float32{0, 1, 0},
				UV:       uv,
			})
		}
	}
	for j := range segments {
		for i := range segments {
			a := uint32(j*n + i)
			b := a + 1
			c := a + uint32(n)
			d := c + 1
			// Rows advance toward +Z, so (a, c, b) winds counter-clockwise seen from +Y.
			mesh.Indices = append(mesh.Indices, a, c, b, b, c, d)
		}
	}
	return mesh
}
