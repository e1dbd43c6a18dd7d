// Package loader imports static glTF 2.0 scenes (.gltf with external or embedded buffers, and
// .glb) into engine scenes. Node hierarchies are flattened to world transforms and every mesh
// primitive is grouped under its material. Skins, animations, cameras and punctual lights in the
// file are ignored.
package loader

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMaxTextureSize is the longest texture edge kept by default; larger images are downscaled.
const DefaultMaxTextureSize = 2048

// maxNodeDepth bounds hierarchy recursion for malformed files with node cycles.
const maxNodeDepth = 64

type loader struct {
	maxTextureSize int
	workers        int
	scale          float32
}

// Loader imports glTF scene files.
type Loader interface {
	// Load reads a .gltf or .glb file and builds a scene named after the file. Relative buffer
	// and image URIs resolve against the file's directory.
	//
	// Parameters:
	//   - path: the scene file
	//
	// Returns:
	//   - scene.Scene: the imported scene, not yet uploaded
	//   - error: error if the file is unreadable or malformed
	Load(path string) (scene.Scene, error)

	// LoadBytes builds a scene from an in-memory glTF JSON or GLB payload. Only data URIs and
	// GLB binary chunks can be resolved.
	//
	// Parameters:
	//   - name: the scene name
	//   - data: the file contents
	//
	// Returns:
	//   - scene.Scene: the imported scene, not yet uploaded
	//   - error: error if the payload is malformed
	LoadBytes(name string, data []byte) (scene.Scene, error)
}

var _ Loader = &loader{}

// NewLoader creates a Loader.
//
// Parameters:
//   - options: variadic list of LoaderBuilderOption functions
//
// Returns:
//   - Loader: the configured loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		maxTextureSize: DefaultMaxTextureSize,
		workers:        max(runtime.NumCPU()-1, 1),
		scale:          1,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *loader) Load(path string) (scene.Scene, error) {
	p := newGLTFParser()
	if err := p.Parse(path); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	name := filepath.Base(path)
	return l.build(name[:len(name)-len(filepath.Ext(name))], p)
}

func (l *loader) LoadBytes(name string, data []byte) (scene.Scene, error) {
	p := newGLTFParser()
	if err := p.ParseBytes(data, ""); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return l.build(name, p)
}

// build converts a parsed document into a scene.
func (l *loader) build(name string, p gltfParser) (scene.Scene, error) {
	start := time.Now()
	doc := p.Document()

	materials, err := newGLTFMaterialExtractor(p).ExtractMaterials(l.maxTextureSize, l.workers)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	b := &sceneBuilder{
		doc:       doc,
		meshes:    newGLTFMeshExtractor(p),
		materials: materials,
		cache:     make(map[int][]meshPrimitive),
		scene:     scene.NewScene(name),
	}

	root := mgl32.Scale3D(l.scale, l.scale, l.scale)
	for _, n := range rootNodes(doc) {
		if err := b.visit(n, root, 0); err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}

	common.Logger().Info("scene loaded",
		"scene", name,
		"nodes", len(b.scene.Nodes()),
		"materials", len(b.scene.Materials()),
		"primitives", len(b.scene.Primitives()),
		"triangles", b.scene.TriangleCount(),
		"elapsed", time.Since(start),
	)
	return b.scene, nil
}

// meshPrimitive is an extracted primitive paired with the engine material it is drawn with.
type meshPrimitive struct {
	primitive model.Primitive
	material  material.Material
}

type sceneBuilder struct {
	doc             *gltfDocument
	meshes          gltfMeshExtractor
	materials       []material.Material
	defaultMaterial material.Material
	cache           map[int][]meshPrimitive
	scene           scene.Scene
}

func (b *sceneBuilder) visit(index int, parent mgl32.Mat4, depth int) error {
	if index < 0 || index >= len(b.doc.Nodes) {
		return fmt.Errorf("node %d: %w", index, errOutOfRange)
	}
	if depth > maxNodeDepth {
		return fmt.Errorf("node %d: hierarchy deeper than %d", index, maxNodeDepth)
	}
	n := &b.doc.Nodes[index]
	world := parent.Mul4(localMatrix(n))

	if n.Mesh != nil {
		prims, err := b.meshPrimitives(*n.Mesh)
		if err != nil {
			return err
		}
		if len(prims) > 0 {
			name := n.Name
			if name == "" {
				name = fmt.Sprintf("node_%d", index)
			}
			b.scene.AddNode(scene.NewNode(name, append([]scene.NodeBuilderOption{scene.WithTransform(world)}, batchOptions(prims)...)...))
		}
	}

	for _, child := range n.Children {
		if err := b.visit(child, world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// meshPrimitives extracts a mesh once. Nodes instancing the same mesh share its primitives.
func (b *sceneBuilder) meshPrimitives(meshIndex int) ([]meshPrimitive, error) {
	if cached, ok := b.cache[meshIndex]; ok {
		return cached, nil
	}
	extracted, err := b.meshes.ExtractMesh(meshIndex)
	if err != nil {
		return nil, err
	}
	out := make([]meshPrimitive, 0, len(extracted))
	for _, ep := range extracted {
		mat, err := b.material(ep.material)
		if err != nil {
			return nil, fmt.Errorf("primitive %s: %w", ep.name, err)
		}
		out = append(out, meshPrimitive{
			primitive: model.NewPrimitive(ep.mesh, model.WithName(ep.name)),
			material:  mat,
		})
	}
	b.cache[meshIndex] = out
	return out, nil
}

func (b *sceneBuilder) material(index int) (material.Material, error) {
	if index < 0 {
		if b.defaultMaterial == nil {
			b.defaultMaterial = material.NewMaterial(material.WithName("default"))
		}
		return b.defaultMaterial, nil
	}
	if index >= len(b.materials) {
		return nil, fmt.Errorf("material %d: %w", index, errOutOfRange)
	}
	return b.materials[index], nil
}

// batchOptions groups primitives by material, keeping first-seen material order.
func batchOptions(prims []meshPrimitive) []scene.NodeBuilderOption {
	var order []material.Material
	grouped := make(map[material.Material][]model.Primitive)
	for _, mp := range prims {
		if _, ok := grouped[mp.material]; !ok {
			order = append(order, mp.material)
		}
		grouped[mp.material] = append(grouped[mp.material], mp.primitive)
	}
	opts := make([]scene.NodeBuilderOption, 0, len(order))
	for _, mat := range order {
		opts = append(opts, scene.WithBatch(mat, grouped[mat]...))
	}
	return opts
}

// rootNodes returns the nodes of the default scene. Files without scenes use every node that is
// no other node's child.
func rootNodes(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		i := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			i = *doc.Scene
		}
		return doc.Scenes[i].Nodes
	}
	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}

// localMatrix returns a node's transform relative to its parent. glTF matrices are column-major,
// like mgl32.
func localMatrix(n *gltfNode) mgl32.Mat4 {
	if n.Matrix != nil {
		return mgl32.Mat4(*n.Matrix)
	}
	m := mgl32.Ident4()
	if t := n.Translation; t != nil {
		m = mgl32.Translate3D(t[0], t[1], t[2])
	}
	if r := n.Rotation; r != nil {
		q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
		m = m.Mul4(q.Normalize().Mat4())
	}
	if s := n.Scale; s != nil {
		m = m.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}
	return m
}
