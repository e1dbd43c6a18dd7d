package loader

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	errInvalidGLBHeader   = errors.New("invalid GLB header")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidDataURI     = errors.New("invalid data URI")
	errBufferSizeMismatch = errors.New("buffer shorter than declared byteLength")
	errOutOfRange         = errors.New("index out of range")
	errSparseAccessor     = errors.New("sparse accessors are not supported")
)

// gltfParser reads a glTF 2.0 document and its binary payload. External buffer and image URIs
// resolve relative to the directory of the parsed file.
type gltfParser interface {
	// Parse reads a .gltf or .glb file. The container is detected from the GLB magic, not the
	// file extension.
	//
	// Parameters:
	//   - path: the file to read
	//
	// Returns:
	//   - error: error if the file cannot be read or is not a valid glTF 2.x asset
	Parse(path string) error

	// ParseBytes parses an in-memory glTF JSON or GLB payload. Relative URIs resolve against
	// baseDir.
	//
	// Parameters:
	//   - data: the raw file contents
	//   - baseDir: directory used to resolve relative URIs (may be empty)
	//
	// Returns:
	//   - error: error if the payload is not a valid glTF 2.x asset
	ParseBytes(data []byte, baseDir string) error

	// Document returns the parsed document, or nil before a successful parse.
	Document() *gltfDocument

	// ReadVec2 reads a VEC2 accessor. Float and normalized unsigned integer components are
	// accepted.
	ReadVec2(accessorIndex int) ([][2]float32, error)

	// ReadVec3 reads a VEC3 FLOAT accessor.
	ReadVec3(accessorIndex int) ([][3]float32, error)

	// ReadIndices reads a SCALAR index accessor of u8, u16 or u32 components.
	ReadIndices(accessorIndex int) ([]uint32, error)

	// ImageBytes returns the encoded bytes of an image, from its buffer view, data URI or
	// external file.
	ImageBytes(imageIndex int) ([]byte, error)
}

type gltfParserImpl struct {
	baseDir  string
	document *gltfDocument
	binChunk []byte
}

var _ gltfParser = &gltfParserImpl{}

func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) Parse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return p.ParseBytes(data, filepath.Dir(path))
}

func (p *gltfParserImpl) ParseBytes(data []byte, baseDir string) error {
	p.baseDir = baseDir
	p.binChunk = nil
	p.document = nil

	jsonData := data
	if len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic {
		var err error
		if jsonData, p.binChunk, err = splitGLB(data); err != nil {
			return err
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("decode glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return fmt.Errorf("%w (got %q)", errInvalidGLTFVersion, doc.Asset.Version)
	}
	if err := p.loadBuffers(&doc); err != nil {
		return err
	}
	p.document = &doc
	return nil
}

// splitGLB returns the JSON and BIN chunk payloads of a GLB container. Unknown chunk types are
// skipped.
func splitGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	if len(data) < glbHeaderSize {
		return nil, nil, errInvalidGLBHeader
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != glbVersion {
		return nil, nil, fmt.Errorf("%w: version %d", errInvalidGLBHeader, v)
	}
	total := int(binary.LittleEndian.Uint32(data[8:]))
	if total > len(data) || total < glbHeaderSize {
		return nil, nil, fmt.Errorf("%w: declared length %d, have %d", errInvalidGLBHeader, total, len(data))
	}

	for off := glbHeaderSize; off+8 <= total; {
		length := int(binary.LittleEndian.Uint32(data[off:]))
		kind := binary.LittleEndian.Uint32(data[off+4:])
		start := off + 8
		if length < 0 || start+length > total {
			return nil, nil, fmt.Errorf("%w: chunk at %d overruns file", errInvalidGLBHeader, off)
		}
		switch kind {
		case glbChunkJSON:
			jsonChunk = data[start : start+length]
		case glbChunkBIN:
			binChunk = data[start : start+length]
		}
		off = start + length
	}

	if jsonChunk == nil {
		return nil, nil, errMissingJSONChunk
	}
	return jsonChunk, binChunk, nil
}

func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && p.binChunk != nil:
			buf.Data = p.binChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no uri and no GLB binary chunk", i)
		default:
			data, err := p.readURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		}
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// readURI resolves a base64 data URI or a path relative to the document.
func (p *gltfParserImpl) readURI(uri string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(uri, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, errInvalidDataURI
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidDataURI, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(filepath.Join(p.baseDir, filepath.FromSlash(uri)))
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", uri, err)
	}
	return data, nil
}

func (p *gltfParserImpl) bufferView(index int) ([]byte, *gltfBufferView, error) {
	doc := p.document
	if doc == nil || index < 0 || index >= len(doc.BufferViews) {
		return nil, nil, fmt.Errorf("bufferView %d: %w", index, errOutOfRange)
	}
	bv := &doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, nil, fmt.Errorf("bufferView %d buffer %d: %w", index, bv.Buffer, errOutOfRange)
	}
	data := doc.Buffers[bv.Buffer].Data
	if bv.ByteOffset < 0 || bv.ByteLength < 0 || bv.ByteOffset+bv.ByteLength > len(data) {
		return nil, nil, fmt.Errorf("bufferView %d range: %w", index, errOutOfRange)
	}
	return data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], bv, nil
}

// accessorElements returns one byte slice per accessor element, honoring the view's stride.
func (p *gltfParserImpl) accessorElements(accessorIndex int) ([][]byte, *gltfAccessor, error) {
	doc := p.document
	if doc == nil || accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return nil, nil, fmt.Errorf("accessor %d: %w", accessorIndex, errOutOfRange)
	}
	acc := &doc.Accessors[accessorIndex]
	if acc.Sparse != nil {
		return nil, nil, fmt.Errorf("accessor %d: %w", accessorIndex, errSparseAccessor)
	}
	if acc.BufferView == nil {
		return nil, nil, fmt.Errorf("accessor %d has no bufferView", accessorIndex)
	}
	view, bv, err := p.bufferView(*acc.BufferView)
	if err != nil {
		return nil, nil, err
	}

	elemSize := componentSize(acc.ComponentType) * componentCount(acc.Type)
	if elemSize == 0 {
		return nil, nil, fmt.Errorf("accessor %d: unsupported layout %s/%d", accessorIndex, acc.Type, acc.ComponentType)
	}
	stride := elemSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	if acc.Count > 0 && acc.ByteOffset+(acc.Count-1)*stride+elemSize > len(view) {
		return nil, nil, fmt.Errorf("accessor %d overruns bufferView %d: %w", accessorIndex, *acc.BufferView, errOutOfRange)
	}

	elems := make([][]byte, acc.Count)
	for i := range elems {
		off := acc.ByteOffset + i*stride
		elems[i] = view[off : off+elemSize]
	}
	return elems, acc, nil
}

func (p *gltfParserImpl) ReadVec2(accessorIndex int) ([][2]float32, error) {
	elems, acc, err := p.accessorElements(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeVec2 {
		return nil, fmt.Errorf("accessor %d is %s, want VEC2", accessorIndex, acc.Type)
	}
	out := make([][2]float32, len(elems))
	for i, e := range elems {
		for c := range 2 {
			v, err := readComponent(e, c, acc.ComponentType)
			if err != nil {
				return nil, fmt.Errorf("accessor %d: %w", accessorIndex, err)
			}
			out[i][c] = v
		}
	}
	return out, nil
}

func (p *gltfParserImpl) ReadVec3(accessorIndex int) ([][3]float32, error) {
	elems, acc, err := p.accessorElements(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeVec3 || acc.ComponentType != gltfComponentTypeFloat {
		return nil, fmt.Errorf("accessor %d is %s/%d, want VEC3 FLOAT", accessorIndex, acc.Type, acc.ComponentType)
	}
	out := make([][3]float32, len(elems))
	for i, e := range elems {
		for c := range 3 {
			out[i][c] = math.Float32frombits(binary.LittleEndian.Uint32(e[c*4:]))
		}
	}
	return out, nil
}

func (p *gltfParserImpl) ReadIndices(accessorIndex int) ([]uint32, error) {
	elems, acc, err := p.accessorElements(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeScalar {
		return nil, fmt.Errorf("index accessor %d is %s, want SCALAR", accessorIndex, acc.Type)
	}
	out := make([]uint32, len(elems))
	for i, e := range elems {
		switch acc.ComponentType {
		case gltfComponentTypeUnsignedByte:
			out[i] = uint32(e[0])
		case gltfComponentTypeUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(e))
		case gltfComponentTypeUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(e)
		default:
			return nil, fmt.Errorf("index accessor %d: unsupported component type %d", accessorIndex, acc.ComponentType)
		}
	}
	return out, nil
}

func (p *gltfParserImpl) ImageBytes(imageIndex int) ([]byte, error) {
	doc := p.document
	if doc == nil || imageIndex < 0 || imageIndex >= len(doc.Images) {
		return nil, fmt.Errorf("image %d: %w", imageIndex, errOutOfRange)
	}
	img := &doc.Images[imageIndex]
	if img.BufferView != nil {
		data, _, err := p.bufferView(*img.BufferView)
		return data, err
	}
	if img.URI == "" {
		return nil, fmt.Errorf("image %d has neither uri nor bufferView", imageIndex)
	}
	return p.readURI(img.URI)
}

// readComponent reads component c of an element as float32. Integer components are treated as
// normalized, which is the only integer form glTF permits for float attributes.
func readComponent(elem []byte, c, componentType int) (float32, error) {
	switch componentType {
	case gltfComponentTypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(elem[c*4:])), nil
	case gltfComponentTypeUnsignedByte:
		return float32(elem[c]) / math.MaxUint8, nil
	case gltfComponentTypeUnsignedShort:
		return float32(binary.LittleEndian.Uint16(elem[c*2:])) / math.MaxUint16, nil
	default:
		return 0, fmt.Errorf("unsupported component type %d", componentType)
	}
}

func componentSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

func componentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4:
		return 4
	default:
		return 0
	}
}
