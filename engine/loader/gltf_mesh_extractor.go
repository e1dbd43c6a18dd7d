package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// extractedPrimitive is one triangle-list primitive of a glTF mesh with the index of the glTF
// material it references (-1 for the default material).
type extractedPrimitive struct {
	name     string
	mesh     model.Mesh
	material int
}

// gltfMeshExtractor converts glTF mesh primitives into model.Mesh geometry.
type gltfMeshExtractor interface {
	// ExtractMesh returns the drawable primitives of a mesh. Non-triangle primitives are skipped
	// with a warning.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh in the document
	//
	// Returns:
	//   - []extractedPrimitive: the mesh's triangle primitives in document order
	//   - error: error if an accessor is malformed
	ExtractMesh(meshIndex int) ([]extractedPrimitive, error)
}

type gltfMeshExtractorImpl struct {
	parser gltfParser
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

func newGLTFMeshExtractor(parser gltfParser) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{parser: parser}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) ([]extractedPrimitive, error) {
	doc := e.parser.Document()
	if doc == nil || meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh %d: %w", meshIndex, errOutOfRange)
	}
	m := &doc.Meshes[meshIndex]
	name := m.Name
	if name == "" {
		name = fmt.Sprintf("mesh_%d", meshIndex)
	}

	out := make([]extractedPrimitive, 0, len(m.Primitives))
	for i := range m.Primitives {
		prim := &m.Primitives[i]
		if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
			common.Logger().Warn("skipping non-triangle primitive", "mesh", name, "primitive", i, "mode", *prim.Mode)
			continue
		}
		mesh, err := e.extractPrimitive(prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", name, i, err)
		}
		matIndex := -1
		if prim.Material != nil {
			matIndex = *prim.Material
		}
		out = append(out, extractedPrimitive{
			name:     fmt.Sprintf("%s_%d", name, i),
			mesh:     mesh,
			material: matIndex,
		})
	}
	return out, nil
}

func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltfPrimitive) (model.Mesh, error) {
	posIndex, ok := prim.Attributes["POSITION"]
	if !ok {
		return model.Mesh{}, fmt.Errorf("missing POSITION attribute")
	}
	positions, err := e.parser.ReadVec3(posIndex)
	if err != nil {
		return model.Mesh{}, fmt.Errorf("POSITION: %w", err)
	}

	vertices := make([]model.GPUVertex, len(positions))
	for i, p := range positions {
		vertices[i].Position = p
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = e.parser.ReadIndices(*prim.Indices); err != nil {
			return model.Mesh{}, fmt.Errorf("indices: %w", err)
		}
		for _, idx := range indices {
			if int(idx) >= len(vertices) {
				return model.Mesh{}, fmt.Errorf("index %d references vertex past %d: %w", idx, len(vertices), errOutOfRange)
			}
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	indices = indices[:len(indices)-len(indices)%3]

	if uvIndex, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := e.parser.ReadVec2(uvIndex)
		if err != nil {
			return model.Mesh{}, fmt.Errorf("TEXCOORD_0: %w", err)
		}
		if len(uvs) != len(vertices) {
			return model.Mesh{}, fmt.Errorf("TEXCOORD_0 count %d, want %d", len(uvs), len(vertices))
		}
		for i, uv := range uvs {
			vertices[i].UV = uv
		}
	}

	if nIndex, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := e.parser.ReadVec3(nIndex)
		if err != nil {
			return model.Mesh{}, fmt.Errorf("NORMAL: %w", err)
		}
		if len(normals) != len(vertices) {
			return model.Mesh{}, fmt.Errorf("NORMAL count %d, want %d", len(normals), len(vertices))
		}
		for i, n := range normals {
			vertices[i].Normal = n
		}
	} else {
		generateNormals(vertices, indices)
	}

	return model.Mesh{Vertices: vertices, Indices: indices}, nil
}

// generateNormals writes smooth vertex normals from area-weighted face normals. Vertices not
// referenced by any non-degenerate triangle get +Y.
func generateNormals(vertices []model.GPUVertex, indices []uint32) {
	accum := make([]mgl32.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		tri := [3]uint32{indices[i], indices[i+1], indices[i+2]}
		p0 := mgl32.Vec3(vertices[tri[0]].Position)
		p1 := mgl32.Vec3(vertices[tri[1]].Position)
		p2 := mgl32.Vec3(vertices[tri[2]].Position)
		face := p1.Sub(p0).Cross(p2.Sub(p0))
		for _, idx := range tri {
			accum[idx] = accum[idx].Add(face)
		}
	}
	for i, n := range accum {
		if n.Len() < 1e-6 {
			vertices[i].Normal = [3]float32{0, 1, 0}
			continue
		}
		vertices[i].Normal = n.Normalize()
	}
}
