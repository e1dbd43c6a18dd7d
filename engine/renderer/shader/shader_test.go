package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

const testLightInclude = `struct Light {
    position: vec3f,
    color: vec3f,
}

struct LightSet {
    numLights: u32,
    lights: array<Light>,
}`

const testCullSource = `//@oxy:include light

struct ClusterPool {
    counter: atomic<u32>,
    indices: array<u32>,
}

struct ClusterOffset {
    start: u32,
    count: u32,
}

struct Camera {
    viewProj: mat4x4f,
    view: mat4x4f,
    proj: mat4x4f,
    invProj: mat4x4f,
    position: vec3f,
    near: f32,
    resolution: vec2f,
    far: f32,
    pad: f32,
}

//@oxy:group ${sceneGroup} 0 uniform camera Camera
//@oxy:group ${sceneGroup} 1 storage_read lightSet LightSet
//@oxy:group ${sceneGroup} 2 storage_read_write offsets array<ClusterOffset>
//@oxy:group ${sceneGroup} 3 storage_read_write pool ClusterPool

@compute @workgroup_size(${wgX}, ${wgY}, ${wgZ})
fn cull_main(@builtin(global_invocation_id) id: vec3u) {
}
`

func TestNewShaderReflectsComputeLayout(t *testing.T) {
	s, err := NewShader("cull", ShaderTypeCompute, testCullSource,
		WithIncludes(map[string]string{"light": testLightInclude}),
		WithVars(map[string]string{"sceneGroup": "0", "wgX": "4", "wgY": "4", "wgZ": "4"}),
	)
	if err != nil {
		t.Fatalf("NewShader() error = %v", err)
	}

	if got := s.EntryPoint(); got != "cull_main" {
		t.Errorf("EntryPoint() = %q, want %q", got, "cull_main")
	}
	if got := s.WorkgroupSize(); got != [3]uint32{4, 4, 4} {
		t.Errorf("WorkgroupSize() = %v, want [4 4 4]", got)
	}
	if !strings.Contains(s.Source(), "struct LightSet") {
		t.Error("include was not expanded")
	}

	entries := s.BindGroupLayoutDescriptor(0).Entries
	if len(entries) != 4 {
		t.Fatalf("got %d entries in group 0, want 4", len(entries))
	}

	tests := []struct {
		binding    uint32
		bufferType wgpu.BufferBindingType
		minSize    uint64
	}{
		{0, wgpu.BufferBindingTypeUniform, 288},
		{1, wgpu.BufferBindingTypeReadOnlyStorage, 16 + 32},
		{2, wgpu.BufferBindingTypeStorage, 8},
		{3, wgpu.BufferBindingTypeStorage, 8},
	}
	for i, tt := range tests {
		e := entries[i]
		if e.Binding != tt.binding {
			t.Errorf("entry %d binding = %d, want %d", i, e.Binding, tt.binding)
		}
		if e.Buffer.Type != tt.bufferType {
			t.Errorf("binding %d buffer type = %v, want %v", tt.binding, e.Buffer.Type, tt.bufferType)
		}
		if e.Buffer.MinBindingSize != tt.minSize {
			t.Errorf("binding %d MinBindingSize = %d, want %d", tt.binding, e.Buffer.MinBindingSize, tt.minSize)
		}
		if e.Visibility != wgpu.ShaderStageCompute {
			t.Errorf("binding %d visibility = %v, want compute", tt.binding, e.Visibility)
		}
	}

	if b, ok := s.BindGroupFromVarName(0, "pool"); !ok || b != 3 {
		t.Errorf("BindGroupFromVarName(0, pool) = %d, %v", b, ok)
	}
	if got := s.BindGroupVarName(0, 1); got != "lightSet" {
		t.Errorf("BindGroupVarName(0, 1) = %q", got)
	}
	if got := len(s.Declarations()); got != 4 {
		t.Errorf("len(Declarations()) = %d, want 4", got)
	}
}

func TestNewShaderReflectsVertexInput(t *testing.T) {
	src := `struct VertexInput {
    @location(0) position: vec3f,
    @location(1) normal: vec3f,
    @location(2) uv: vec2f,
}

struct VertexOutput {
    @builtin(position) clip: vec4f,
    @location(0) worldPos: vec3f,
}

@vertex
fn vs_main(input: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = vec4f(input.position, 1.0);
    out.worldPos = input.position;
    return out;
}
`
	s, err := NewShader("scene_vs", ShaderTypeVertex, src)
	if err != nil {
		t.Fatalf("NewShader() error = %v", err)
	}
	layouts := s.VertexLayouts()
	if len(layouts) != 1 {
		t.Fatalf("got %d vertex layouts, want 1", len(layouts))
	}
	l := s.VertexLayout(0)[0]
	if l.ArrayStride != 32 {
		t.Errorf("ArrayStride = %d, want 32", l.ArrayStride)
	}
	wantOffsets := []uint64{0, 12, 24}
	for i, a := range l.Attributes {
		if a.Offset != wantOffsets[i] || a.ShaderLocation != uint32(i) {
			t.Errorf("attribute %d = offset %d location %d", i, a.Offset, a.ShaderLocation)
		}
	}
	if s.WorkgroupSize() != [3]uint32{} {
		t.Errorf("vertex shader WorkgroupSize() = %v, want zero", s.WorkgroupSize())
	}
}

func TestReflectTextureBindings(t *testing.T) {
	src := `@group(1) @binding(0) var gAlbedo: texture_2d<f32>;
@group(1) @binding(1) var gDepth: texture_depth_2d;
@group(1) @binding(2) var gSampler: sampler;
`
	layouts := ReflectBindGroupLayouts(src, wgpu.ShaderStageFragment)
	entries := layouts[1].Entries
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Texture.SampleType != wgpu.TextureSampleTypeFloat || entries[0].Texture.ViewDimension != wgpu.TextureViewDimension2D {
		t.Errorf("albedo entry = %+v", entries[0].Texture)
	}
	if entries[1].Texture.SampleType != wgpu.TextureSampleTypeDepth {
		t.Errorf("depth entry sample type = %v", entries[1].Texture.SampleType)
	}
	if entries[2].Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		t.Errorf("sampler entry type = %v", entries[2].Sampler.Type)
	}
}

func TestMergeBindGroupLayouts(t *testing.T) {
	vs := wgpu.BindGroupLayoutDescriptor{Entries: []wgpu.BindGroupLayoutEntry{
		{Binding: 0, Visibility: wgpu.ShaderStageVertex, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: 288}},
	}}
	fs := wgpu.BindGroupLayoutDescriptor{Entries: []wgpu.BindGroupLayoutEntry{
		{Binding: 4, Visibility: wgpu.ShaderStageFragment, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: 32}},
		{Binding: 0, Visibility: wgpu.ShaderStageFragment, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: 288}},
	}}

	merged := MergeBindGroupLayouts(vs, fs)
	if len(merged.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(merged.Entries))
	}
	if merged.Entries[0].Binding != 0 || merged.Entries[1].Binding != 4 {
		t.Errorf("entries not sorted: %d, %d", merged.Entries[0].Binding, merged.Entries[1].Binding)
	}
	if merged.Entries[0].Visibility != wgpu.ShaderStageVertex|wgpu.ShaderStageFragment {
		t.Errorf("binding 0 visibility = %v", merged.Entries[0].Visibility)
	}
	if merged.Entries[1].Visibility != wgpu.ShaderStageFragment {
		t.Errorf("binding 4 visibility = %v", merged.Entries[1].Visibility)
	}
}

func TestPreProcessorErrors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		includes map[string]string
		vars     map[string]string
		wantErr  error
	}{
		{
			name:    "undefined variable",
			source:  "const N: u32 = ${clusters}u;",
			wantErr: ErrUndefinedVariable,
		},
		{
			name:    "unknown include",
			source:  "//@oxy:include missing",
			wantErr: ErrUnknownInclude,
		},
		{
			name:     "include cycle",
			source:   "//@oxy:include a",
			includes: map[string]string{"a": "//@oxy:include b", "b": "//@oxy:include a"},
			wantErr:  ErrIncludeCycle,
		},
		{
			name:     "undefined variable inside include",
			source:   "//@oxy:include a",
			includes: map[string]string{"a": "const R: f32 = ${radius};"},
			wantErr:  ErrUndefinedVariable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPreProcessor(tt.includes, tt.vars).Process(tt.source)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Process() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPreProcessorExpandsNestedIncludes(t *testing.T) {
	pp := NewPreProcessor(
		map[string]string{
			"outer": "//@oxy:include inner\nconst OUTER: u32 = ${n}u;",
			"inner": "const INNER: u32 = ${n}u;",
		},
		map[string]string{"n": "16"},
	)
	out, err := pp.Process("//@oxy:include outer\n//@oxy:group 2 0 uniform params Params")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	want := "const INNER: u32 = 16u;\nconst OUTER: u32 = 16u;\n@group(2) @binding(0) var<uniform> params: Params;"
	if out != want {
		t.Errorf("Process() =\n%s\nwant\n%s", out, want)
	}
	decls := pp.Declarations()
	if len(decls) != 1 || decls[0].Name != "params" || decls[0].Group != 2 {
		t.Errorf("Declarations() = %+v", decls)
	}
}

func TestPreProcessorIncludesOnce(t *testing.T) {
	pp := NewPreProcessor(
		map[string]string{
			"camera":  "struct Camera { near: f32, }",
			"shading": "//@oxy:include camera\nfn shade() {}",
		},
		nil,
	)
	out, err := pp.Process("//@oxy:include camera\n//@oxy:include shading\n//@oxy:include camera")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if n := strings.Count(out, "struct Camera"); n != 1 {
		t.Errorf("Camera declared %d times, want 1:\n%s", n, out)
	}
	if !strings.Contains(out, "fn shade() {}") {
		t.Errorf("shading snippet missing:\n%s", out)
	}

	// A second Process call starts from a clean slate.
	again, err := pp.Process("//@oxy:include camera")
	if err != nil || !strings.Contains(again, "struct Camera") {
		t.Errorf("second Process() = %q, %v", again, err)
	}
}

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    *Annotation
		wantErr bool
	}{
		{name: "plain code", line: "let x = 1;"},
		{name: "plain comment", line: "// scene group"},
		{name: "include", line: "//@oxy:include cluster", want: &Annotation{Type: AnnotationTypeInclude, Name: "cluster", Line: 1}},
		{
			name: "group",
			line: "  //@oxy:group 0 4 uniform grid ClusterGrid",
			want: &Annotation{Type: AnnotationTypeBindingGroup, Name: "grid", Line: 1, Group: 0, Binding: 4, AddressSpace: AddressSpaceUniform, WGSLType: "ClusterGrid"},
		},
		{name: "bad address space", line: "//@oxy:group 0 1 private x X", wantErr: true},
		{name: "bad group", line: "//@oxy:group a 1 uniform x X", wantErr: true},
		{name: "missing args", line: "//@oxy:group 0 1 uniform", wantErr: true},
		{name: "unknown type", line: "//@oxy:provider 0 1 lights", wantErr: true},
		{name: "empty", line: "//@oxy:", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnnotation(tt.line, 1)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAnnotation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want == nil {
				if got != nil {
					t.Fatalf("parseAnnotation() = %+v, want nil", got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Fatalf("parseAnnotation() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewShaderMissingEntryPoint(t *testing.T) {
	_, err := NewShader("empty", ShaderTypeFragment, "const X: f32 = 1.0;")
	if !errors.Is(err, ErrMissingEntryPoint) {
		t.Fatalf("NewShader() error = %v, want ErrMissingEntryPoint", err)
	}
}

func TestValidateWGSLRejectsSyntaxErrors(t *testing.T) {
	err := ValidateWGSL("broken", "fn main( {")
	if !errors.Is(err, ErrShaderValidation) {
		t.Fatalf("ValidateWGSL() error = %v, want ErrShaderValidation", err)
	}
}
