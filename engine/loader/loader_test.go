package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

func ptr[T any](v T) *T { return &v }

// testBinary packs one triangle in the XY plane: positions, texcoords and u16 indices.
func testBinary() []byte {
	var buf bytes.Buffer
	for _, f := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		binary.Write(&buf, binary.LittleEndian, f)
	}
	for _, f := range []float32{0, 0, 1, 0, 0, 1} {
		binary.Write(&buf, binary.LittleEndian, f)
	}
	for _, i := range []uint16{0, 1, 2} {
		binary.Write(&buf, binary.LittleEndian, i)
	}
	return buf.Bytes()
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := range 2 {
		for x := range 4 {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// testDocument describes two nodes instancing one mesh of two primitives, one textured and one
// without a material. The buffer URI is left empty.
func testDocument(t *testing.T) *gltfDocument {
	t.Helper()
	s := math.Sqrt2 / 2
	return &gltfDocument{
		Asset: gltfAsset{Version: "2.0"},
		Scene: ptr(0),
		Scenes: []gltfScene{
			{Nodes: []int{0, 2}},
		},
		Nodes: []gltfNode{
			{Name: "parent", Translation: &[3]float32{1, 0, 0}, Children: []int{1}},
			{Name: "child", Mesh: ptr(0), Scale: &[3]float32{2, 2, 2}},
			{Name: "instance", Mesh: ptr(0), Rotation: &[4]float32{0, float32(s), 0, float32(s)}},
		},
		Meshes: []gltfMesh{{
			Name: "tri",
			Primitives: []gltfPrimitive{
				{Attributes: map[string]int{"POSITION": 0, "TEXCOORD_0": 1}, Indices: ptr(2), Material: ptr(0)},
				{Attributes: map[string]int{"POSITION": 0}, Indices: ptr(2)},
			},
		}},
		Accessors: []gltfAccessor{
			{BufferView: ptr(0), ComponentType: gltfComponentTypeFloat, Count: 3, Type: gltfAccessorTypeVec3},
			{BufferView: ptr(1), ComponentType: gltfComponentTypeFloat, Count: 3, Type: gltfAccessorTypeVec2},
			{BufferView: ptr(2), ComponentType: gltfComponentTypeUnsignedShort, Count: 3, Type: gltfAccessorTypeScalar},
		},
		BufferViews: []gltfBufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 36},
			{Buffer: 0, ByteOffset: 36, ByteLength: 24},
			{Buffer: 0, ByteOffset: 60, ByteLength: 6},
		},
		Buffers: []gltfBuffer{{ByteLength: 66}},
		Materials: []gltfMaterial{{
			Name: "red",
			PbrMetallicRoughness: &gltfPbrMetallicRoughness{
				BaseColorFactor:  &[4]float32{1, 0.5, 0.25, 1},
				BaseColorTexture: &gltfTextureInfo{Index: 0},
				RoughnessFactor:  ptr[float32](0),
			},
		}},
		Textures: []gltfTexture{{Sampler: ptr(0), Source: ptr(0)}},
		Images:   []gltfImage{{URI: dataURI("image/png", testPNG(t))}},
		Samplers: []gltfSampler{{MagFilter: ptr(gltfFilterNearest), WrapS: ptr(gltfWrapClampToEdge)}},
	}
}

func embeddedJSON(t *testing.T, doc *gltfDocument) []byte {
	t.Helper()
	doc.Buffers[0].URI = dataURI("application/octet-stream", testBinary())
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func pad4(b []byte, fill byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, fill)
	}
	return b
}

func glbBytes(t *testing.T, doc *gltfDocument) []byte {
	t.Helper()
	jsonData, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	jsonData = pad4(jsonData, ' ')
	bin := pad4(testBinary(), 0)

	var buf bytes.Buffer
	total := glbHeaderSize + 8 + len(jsonData) + 8 + len(bin)
	for _, v := range []uint32{glbMagic, glbVersion, uint32(total), uint32(len(jsonData)), glbChunkJSON} {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.Write(jsonData)
	for _, v := range []uint32{uint32(len(bin)), glbChunkBIN} {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.Write(bin)
	return buf.Bytes()
}

func TestLoadBytes(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{"embedded gltf", func(t *testing.T) []byte { return embeddedJSON(t, testDocument(t)) }},
		{"glb", func(t *testing.T) []byte { return glbBytes(t, testDocument(t)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := NewLoader(WithWorkers(2)).LoadBytes("test", tt.data(t))
			if err != nil {
				t.Fatal(err)
			}
			if sc.Name() != "test" {
				t.Errorf("Name() = %q, want test", sc.Name())
			}

			nodes := sc.Nodes()
			if len(nodes) != 2 {
				t.Fatalf("got %d nodes, want 2", len(nodes))
			}
			if nodes[0].Name() != "child" || nodes[1].Name() != "instance" {
				t.Errorf("node order = %s, %s", nodes[0].Name(), nodes[1].Name())
			}
			wantChild := mgl32.Translate3D(1, 0, 0).Mul4(mgl32.Scale3D(2, 2, 2))
			if !nodes[0].ModelMatrix().ApproxEqualThreshold(wantChild, 1e-5) {
				t.Errorf("child matrix = %v, want %v", nodes[0].ModelMatrix(), wantChild)
			}
			wantInstance := mgl32.HomogRotate3DY(math.Pi / 2)
			if !nodes[1].ModelMatrix().ApproxEqualThreshold(wantInstance, 1e-5) {
				t.Errorf("instance matrix = %v, want %v", nodes[1].ModelMatrix(), wantInstance)
			}

			if got := len(sc.Primitives()); got != 2 {
				t.Errorf("got %d unique primitives, want 2 shared by both nodes", got)
			}
			if got := len(sc.Materials()); got != 2 {
				t.Errorf("got %d materials, want 2", got)
			}
			if got := sc.TriangleCount(); got != 4 {
				t.Errorf("TriangleCount() = %d, want 4", got)
			}

			batches := nodes[0].Batches()
			if len(batches) != 2 {
				t.Fatalf("got %d batches, want 2", len(batches))
			}
			red, def := batches[0].Material, batches[1].Material
			if red.Name() != "red" || def.Name() != "default" {
				t.Errorf("batch materials = %s, %s", red.Name(), def.Name())
			}
			if red.BaseColor() != [4]float32{1, 0.5, 0.25, 1} {
				t.Errorf("BaseColor() = %v", red.BaseColor())
			}
			if math.Abs(float64(red.SpecularStrength()-1)) > 1e-6 || red.Shininess() != maxShininess {
				t.Errorf("specular = %v/%v, want 1/%v", red.SpecularStrength(), red.Shininess(), maxShininess)
			}
			albedo := red.Albedo()
			if albedo.Width != 4 || albedo.Height != 2 || !bytes.Equal(albedo.Pixels[:4], []byte{255, 0, 0, 255}) {
				t.Errorf("albedo = %dx%d %v", albedo.Width, albedo.Height, albedo.Pixels[:4])
			}
			smp := red.Sampler()
			if smp.MagFilter != wgpu.FilterModeNearest || smp.AddressModeU != wgpu.AddressModeClampToEdge || smp.AddressModeV != wgpu.AddressModeRepeat {
				t.Errorf("sampler = %+v", smp)
			}

			mesh := batches[0].Primitives[0].Mesh()
			if len(mesh.Vertices) != 3 || len(mesh.Indices) != 3 {
				t.Fatalf("mesh has %d vertices, %d indices", len(mesh.Vertices), len(mesh.Indices))
			}
			if mesh.Vertices[1].UV != [2]float32{1, 0} {
				t.Errorf("vertex 1 uv = %v", mesh.Vertices[1].UV)
			}
			for i, v := range mesh.Vertices {
				if v.Normal != [3]float32{0, 0, 1} {
					t.Errorf("vertex %d generated normal = %v, want +Z", i, v.Normal)
				}
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	doc := testDocument(t)
	doc.Buffers[0].URI = "tri.bin"
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "tri.bin"), testBinary(), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "box.gltf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	sc, err := NewLoader().Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name() != "box" {
		t.Errorf("Name() = %q, want box", sc.Name())
	}
	if len(sc.Nodes()) != 2 {
		t.Errorf("got %d nodes, want 2", len(sc.Nodes()))
	}

	if _, err := NewLoader().Load(filepath.Join(dir, "missing.gltf")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want %v", err, os.ErrNotExist)
	}
}

func TestLoadBytesErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    func(t *testing.T) []byte
		wantErr error
	}{
		{
			name: "unsupported version",
			data: func(t *testing.T) []byte {
				doc := testDocument(t)
				doc.Asset.Version = "1.0"
				return embeddedJSON(t, doc)
			},
			wantErr: errInvalidGLTFVersion,
		},
		{
			name: "accessor out of range",
			data: func(t *testing.T) []byte {
				doc := testDocument(t)
				doc.Meshes[0].Primitives[0].Attributes["POSITION"] = 99
				return embeddedJSON(t, doc)
			},
			wantErr: errOutOfRange,
		},
		{
			name: "accessor overruns view",
			data: func(t *testing.T) []byte {
				doc := testDocument(t)
				doc.Accessors[2].Count = 10
				return embeddedJSON(t, doc)
			},
			wantErr: errOutOfRange,
		},
		{
			name: "child out of range",
			data: func(t *testing.T) []byte {
				doc := testDocument(t)
				doc.Nodes[0].Children = []int{7}
				return embeddedJSON(t, doc)
			},
			wantErr: errOutOfRange,
		},
		{
			name: "truncated glb",
			data: func(t *testing.T) []byte {
				return glbBytes(t, testDocument(t))[:40]
			},
			wantErr: errInvalidGLBHeader,
		},
		{
			name: "glb without bin chunk",
			data: func(t *testing.T) []byte {
				doc := testDocument(t)
				data, err := json.Marshal(doc)
				if err != nil {
					t.Fatal(err)
				}
				data = pad4(data, ' ')
				var buf bytes.Buffer
				for _, v := range []uint32{glbMagic, glbVersion, uint32(glbHeaderSize + 8 + len(data)), uint32(len(data)), glbChunkJSON} {
					binary.Write(&buf, binary.LittleEndian, v)
				}
				buf.Write(data)
				return buf.Bytes()
			},
		},
		{
			name: "bad data uri",
			data: func(t *testing.T) []byte {
				doc := testDocument(t)
				doc.Buffers[0].URI = "data:application/octet-stream,plain"
				data, err := json.Marshal(doc)
				if err != nil {
					t.Fatal(err)
				}
				return data
			},
			wantErr: errInvalidDataURI,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadBytes("broken", tt.data(t))
			if err == nil {
				t.Fatal("LoadBytes returned no error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUndecodableTextureFallsBackToWhite(t *testing.T) {
	doc := testDocument(t)
	doc.Images[0].URI = dataURI("image/png", []byte("not a png"))
	sc, err := NewLoader().LoadBytes("test", embeddedJSON(t, doc))
	if err != nil {
		t.Fatal(err)
	}
	albedo := sc.Nodes()[0].Batches()[0].Material.Albedo()
	if albedo.Width != 1 || !bytes.Equal(albedo.Pixels, []byte{255, 255, 255, 255}) {
		t.Errorf("albedo = %dx%d %v, want 1x1 white", albedo.Width, albedo.Height, albedo.Pixels)
	}
}

func TestToRGBA(t *testing.T) {
	tests := []struct {
		name          string
		w, h, maxSize int
		wantW, wantH  int
	}{
		{"within limit", 64, 32, 128, 64, 32},
		{"no limit", 300, 200, 0, 300, 200},
		{"landscape", 100, 50, 20, 20, 10},
		{"portrait", 30, 120, 40, 10, 40},
		{"thin", 1000, 1, 100, 100, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewNRGBA(image.Rect(0, 0, tt.w, tt.h))
			got := toRGBA(src, tt.maxSize)
			if got.Rect.Dx() != tt.wantW || got.Rect.Dy() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", got.Rect.Dx(), got.Rect.Dy(), tt.wantW, tt.wantH)
			}
			if len(got.Pix) != tt.wantW*tt.wantH*4 {
				t.Errorf("len(Pix) = %d, want tightly packed %d", len(got.Pix), tt.wantW*tt.wantH*4)
			}
		})
	}
}

func TestSpecularFromRoughness(t *testing.T) {
	tests := []struct {
		roughness               float32
		wantStrength, wantShiny float32
	}{
		{1, 0.1, minShininess},
		{0, 1, maxShininess},
		{2, 0.1, minShininess},
		{-1, 1, maxShininess},
	}
	for _, tt := range tests {
		strength, shiny := specularFromRoughness(tt.roughness)
		if math.Abs(float64(strength-tt.wantStrength)) > 1e-6 || shiny != tt.wantShiny {
			t.Errorf("specularFromRoughness(%v) = %v, %v; want %v, %v", tt.roughness, strength, shiny, tt.wantStrength, tt.wantShiny)
		}
	}
}

func TestLocalMatrixPrefersMatrix(t *testing.T) {
	m := mgl32.Translate3D(3, 4, 5)
	n := &gltfNode{Matrix: (*[16]float32)(&m), Translation: &[3]float32{9, 9, 9}}
	if got := localMatrix(n); got != m {
		t.Errorf("localMatrix = %v, want %v", got, m)
	}
}
