package strategy

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Mode
		wantErr bool
	}{
		{"naive", "naive", ModeNaive, false},
		{"forward plus", "forward+", ModeForwardPlus, false},
		{"clustered deferred", "clustered deferred", ModeClusteredDeferred, false},
		{"case and whitespace", "  Forward+ ", ModeForwardPlus, false},
		{"key form", "clustered_deferred", ModeClusteredDeferred, false},
		{"unknown", "raytraced", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownMode) {
					t.Fatalf("ParseMode(%q) error = %v, want ErrUnknownMode", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestModeStringRoundTrip(t *testing.T) {
	for _, m := range Modes() {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if s := Mode(42).String(); s != "Mode(42)" {
		t.Errorf("Mode(42).String() = %q", s)
	}
}

func TestWGSLFloat(t *testing.T) {
	tests := []struct {
		in   float32
		want string
	}{
		{0, "0.0"},
		{2, "2.0"},
		{0.05, "0.05"},
		{-1.5, "-1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := wgslFloat(tt.in); got != tt.want {
				t.Errorf("wgslFloat(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfigOptions(t *testing.T) {
	def := newConfig()
	if def.ClustersX != light.DefaultClustersX || def.LightsPerCluster != light.DefaultLightsPerCluster {
		t.Errorf("default grid = %d, lights per cluster %d", def.ClustersX, def.LightsPerCluster)
	}
	if !def.AnimateLights || !def.ValidateShaders || def.Clock == nil {
		t.Errorf("defaults = %+v", def)
	}

	cfg := newConfig(
		WithGrid(8, 4, 2),
		WithGrid(0, 1, 1),
		WithLightsPerCluster(0),
		WithLightsPerCluster(32),
		WithAmbient(0.1, 0.2, 0.3),
		WithLightAnimation(false),
		WithClock(func() time.Duration { return 3 * time.Second }),
	)
	if cfg.ClustersX != 8 || cfg.ClustersY != 4 || cfg.ClustersZ != 2 {
		t.Errorf("grid = %d x %d x %d, want 8 x 4 x 2", cfg.ClustersX, cfg.ClustersY, cfg.ClustersZ)
	}
	if cfg.LightsPerCluster != 32 {
		t.Errorf("LightsPerCluster = %d, want 32", cfg.LightsPerCluster)
	}
	if cfg.Ambient[2] != 0.3 || cfg.AnimateLights {
		t.Errorf("ambient %v animate %v", cfg.Ambient, cfg.AnimateLights)
	}
	if cfg.Clock() != 3*time.Second {
		t.Errorf("Clock() = %v", cfg.Clock())
	}
}

func TestWorkgroupCount(t *testing.T) {
	tests := []struct{ n, size, want uint32 }{
		{0, 128, 0},
		{1, 128, 1},
		{128, 128, 1},
		{129, 128, 2},
		{5000, 128, 40},
	}
	for _, tt := range tests {
		if got := workgroupCount(tt.n, tt.size); got != tt.want {
			t.Errorf("workgroupCount(%d, %d) = %d, want %d", tt.n, tt.size, got, tt.want)
		}
	}
}

func testPipelines(t *testing.T, mode Mode, animate bool) pipelineSet {
	t.Helper()
	shaders, err := newShaderSet("test_"+mode.key(), newConfig(WithShaderValidation(false)), light.DefaultLightRadius)
	if err != nil {
		t.Fatalf("newShaderSet() error = %v", err)
	}
	ps, err := buildPipelines(mode, shaders, animate)
	if err != nil {
		t.Fatalf("buildPipelines(%s) error = %v", mode, err)
	}
	for _, p := range ps.all() {
		if err := p.Validate(); err != nil {
			t.Fatalf("%s Validate() error = %v", p.PipelineKey(), err)
		}
	}
	return ps
}

type wantEntry struct {
	binding    uint32
	visibility wgpu.ShaderStage
	buffer     wgpu.BufferBindingType
	texture    wgpu.TextureSampleType
}

func checkGroup(t *testing.T, p pipeline.Pipeline, group int, want []wantEntry) {
	t.Helper()
	got := p.BindGroupLayoutDescriptor(group).Entries
	if len(got) != len(want) {
		t.Fatalf("%s group %d has %d entries, want %d", p.PipelineKey(), group, len(got), len(want))
	}
	for i, w := range want {
		e := got[i]
		if e.Binding != w.binding || e.Visibility != w.visibility || e.Buffer.Type != w.buffer || e.Texture.SampleType != w.texture {
			t.Errorf("%s group %d entry %d = binding %d visibility %v buffer %v texture %v, want %+v",
				p.PipelineKey(), group, i, e.Binding, e.Visibility, e.Buffer.Type, e.Texture.SampleType, w)
		}
	}
}

// checkObjectGroups asserts the model and material groups of p match the layouts scene.Upload
// creates their bind groups with.
func checkObjectGroups(t *testing.T, p pipeline.Pipeline, withMaterial bool) {
	t.Helper()
	modelDesc, err := model.BindGroupLayoutDescriptor()
	if err != nil {
		t.Fatalf("model layout: %v", err)
	}
	if got := p.BindGroupLayoutDescriptor(model.BindGroupIndex).Entries; !reflect.DeepEqual(got, modelDesc.Entries) {
		t.Errorf("%s model group = %+v, want %+v", p.PipelineKey(), got, modelDesc.Entries)
	}
	if !withMaterial {
		return
	}
	materialDesc, err := material.BindGroupLayoutDescriptor()
	if err != nil {
		t.Fatalf("material layout: %v", err)
	}
	if got := p.BindGroupLayoutDescriptor(material.BindGroupIndex).Entries; !reflect.DeepEqual(got, materialDesc.Entries) {
		t.Errorf("%s material group = %+v, want %+v", p.PipelineKey(), got, materialDesc.Entries)
	}
}

const (
	vs      = wgpu.ShaderStageVertex
	fs      = wgpu.ShaderStageFragment
	cs      = wgpu.ShaderStageCompute
	uniform = wgpu.BufferBindingTypeUniform
	ro      = wgpu.BufferBindingTypeReadOnlyStorage
	rw      = wgpu.BufferBindingTypeStorage
	none    = wgpu.BufferBindingTypeUndefined
	noTex   = wgpu.TextureSampleTypeUndefined
)

func TestNaivePipelines(t *testing.T) {
	ps := testPipelines(t, ModeNaive, false)
	if ps.animate != nil || ps.cull != nil || ps.prepass != nil || ps.geometry != nil {
		t.Fatal("naive builds only its shading pipeline without animation")
	}
	if got := ps.keys(); len(got) != 1 || got[0] != "test_naive/naive" {
		t.Errorf("keys() = %v", got)
	}

	p := ps.shade
	if p.GroupCount() != 3 {
		t.Fatalf("GroupCount() = %d, want 3", p.GroupCount())
	}
	checkGroup(t, p, SceneGroup, []wantEntry{
		{bindingCamera, vs | fs, uniform, noTex},
		{bindingLights, fs, ro, noTex},
	})
	checkObjectGroups(t, p, true)
	if !p.DepthWriteEnabled() || p.DepthCompare() != wgpu.CompareFunctionLess {
		t.Errorf("naive depth = write %v compare %v", p.DepthWriteEnabled(), p.DepthCompare())
	}

	layouts := p.Shader(shader.ShaderTypeVertex).VertexLayout(0)
	if len(layouts) != 1 || layouts[0].ArrayStride != 32 || len(layouts[0].Attributes) != 3 {
		t.Errorf("vertex layout = %+v, want one 32-byte layout with 3 attributes", layouts)
	}
}

func TestForwardPlusPipelines(t *testing.T) {
	ps := testPipelines(t, ModeForwardPlus, true)
	if ps.animate == nil || ps.cull == nil || ps.prepass == nil || ps.shade == nil || ps.geometry != nil {
		t.Fatalf("pipelines = %v", ps.keys())
	}

	checkGroup(t, ps.animate, SceneGroup, []wantEntry{
		{bindingMoveLightsSet, cs, rw, noTex},
		{bindingMoveLightsUniform, cs, uniform, noTex},
	})
	if got := ps.animate.Shader(shader.ShaderTypeCompute).WorkgroupSize(); got != [3]uint32{light.MoveLightsWorkgroupSize, 1, 1} {
		t.Errorf("move lights workgroup = %v", got)
	}

	checkGroup(t, ps.cull, SceneGroup, []wantEntry{
		{bindingCamera, cs, uniform, noTex},
		{bindingLights, cs, ro, noTex},
		{bindingClusterOffsets, cs, rw, noTex},
		{bindingLightPool, cs, rw, noTex},
		{bindingClusterGrid, cs, uniform, noTex},
	})
	if got := ps.cull.Shader(shader.ShaderTypeCompute).WorkgroupSize(); got != [3]uint32{DefaultCullWorkgroupSize, 1, 1} {
		t.Errorf("cull workgroup = %v", got)
	}
	if size := ps.cull.BindGroupLayoutDescriptor(SceneGroup).Entries[bindingClusterGrid].Buffer.MinBindingSize; size != 32 {
		t.Errorf("cluster grid min binding size = %d, want 32", size)
	}

	if !ps.prepass.DepthOnly() || ps.prepass.GroupCount() != 2 {
		t.Errorf("prepass depth only %v groups %d", ps.prepass.DepthOnly(), ps.prepass.GroupCount())
	}
	checkGroup(t, ps.prepass, SceneGroup, []wantEntry{{bindingCamera, vs, uniform, noTex}})
	checkObjectGroups(t, ps.prepass, false)

	checkGroup(t, ps.shade, SceneGroup, []wantEntry{
		{bindingCamera, vs | fs, uniform, noTex},
		{bindingLights, fs, ro, noTex},
		{bindingClusterOffsets, fs, ro, noTex},
		{bindingLightPool, fs, ro, noTex},
		{bindingClusterGrid, fs, uniform, noTex},
	})
	checkObjectGroups(t, ps.shade, true)
	if ps.shade.DepthWriteEnabled() || ps.shade.DepthCompare() != wgpu.CompareFunctionEqual {
		t.Errorf("forward+ depth = write %v compare %v", ps.shade.DepthWriteEnabled(), ps.shade.DepthCompare())
	}
}

func TestClusteredDeferredPipelines(t *testing.T) {
	ps := testPipelines(t, ModeClusteredDeferred, false)
	if ps.cull == nil || ps.prepass == nil || ps.geometry == nil || ps.shade == nil {
		t.Fatalf("pipelines = %v", ps.keys())
	}

	g := ps.geometry
	if !reflect.DeepEqual(g.ColorFormats(), gBufferFormats) || g.DepthOnly() {
		t.Errorf("gbuffer color formats = %v", g.ColorFormats())
	}
	if g.DepthWriteEnabled() || g.DepthCompare() != wgpu.CompareFunctionEqual {
		t.Errorf("gbuffer depth = write %v compare %v", g.DepthWriteEnabled(), g.DepthCompare())
	}
	checkGroup(t, g, SceneGroup, []wantEntry{{bindingCamera, vs, uniform, noTex}})
	checkObjectGroups(t, g, true)

	shade := ps.shade
	if shade.DepthTestEnabled() || shade.CullMode() != wgpu.CullModeNone || shade.GroupCount() != 1 {
		t.Errorf("deferred shading depth test %v cull %v groups %d", shade.DepthTestEnabled(), shade.CullMode(), shade.GroupCount())
	}
	if layouts := shade.Shader(shader.ShaderTypeVertex).VertexLayouts(); len(layouts) != 0 {
		t.Errorf("full-screen vertex shader has vertex layouts %+v", layouts)
	}
	checkGroup(t, shade, SceneGroup, []wantEntry{
		{bindingCamera, fs, uniform, noTex},
		{bindingLights, fs, ro, noTex},
		{bindingClusterOffsets, fs, ro, noTex},
		{bindingLightPool, fs, ro, noTex},
		{bindingClusterGrid, fs, uniform, noTex},
		{5, fs, none, wgpu.TextureSampleTypeFloat},
		{6, fs, none, wgpu.TextureSampleTypeFloat},
		{7, fs, none, wgpu.TextureSampleTypeFloat},
		{8, fs, none, wgpu.TextureSampleTypeFloat},
		{bindingGBufferDepth, fs, none, wgpu.TextureSampleTypeDepth},
	})
}

func TestPipelineKeysArePrefixed(t *testing.T) {
	ps := testPipelines(t, ModeClusteredDeferred, true)
	keys := ps.keys()
	if len(keys) != 5 {
		t.Fatalf("keys() = %v, want 5", keys)
	}
	seen := make(map[string]bool)
	for _, k := range keys {
		if !strings.HasPrefix(k, "test_clustered_deferred/") {
			t.Errorf("key %q lacks instance prefix", k)
		}
		if seen[k] {
			t.Errorf("duplicate key %q", k)
		}
		seen[k] = true
	}
}

func TestShaderVarsCoverEveryPlaceholder(t *testing.T) {
	vars := shaderVars(newConfig(), light.DefaultLightRadius)
	for _, name := range []string{"sceneGroup", "modelGroup", "materialGroup", "lightsPerCluster", "cullWorkgroupSize", "moveLightsWorkgroupSize", "lightRadius", "ambientR", "clearB"} {
		if _, ok := vars[name]; !ok {
			t.Errorf("shaderVars() missing %q", name)
		}
	}
	if vars["lightRadius"] != "2.0" || vars["modelGroup"] != "1" || vars["materialGroup"] != "2" {
		t.Errorf("lightRadius %q modelGroup %q materialGroup %q", vars["lightRadius"], vars["modelGroup"], vars["materialGroup"])
	}
}

func TestShadersValidate(t *testing.T) {
	for _, mode := range Modes() {
		t.Run(mode.key(), func(t *testing.T) {
			cfg := newConfig(WithAmbient(0, 0.25, 1))
			if !cfg.ValidateShaders {
				t.Fatal("shader validation is off by default")
			}
			shaders, err := newShaderSet("validate_"+mode.key(), cfg, light.DefaultLightRadius)
			if err != nil {
				t.Fatalf("newShaderSet() error = %v", err)
			}
			ps, err := buildPipelines(mode, shaders, true)
			if err != nil {
				t.Fatalf("buildPipelines(%s) error = %v", mode, err)
			}
			for _, p := range ps.all() {
				if err := p.Validate(); err != nil {
					t.Errorf("%s Validate() error = %v", p.PipelineKey(), err)
				}
			}
		})
	}
}

func TestShaderValidationRejectsBrokenSource(t *testing.T) {
	_, err := shader.NewShader("broken", shader.ShaderTypeFragment,
		"@fragment\nfn fs_main() -> @location(0) vec4f {\n    return vec4f(missing, 1.0);\n}\n",
		shader.WithValidation(true),
	)
	if !errors.Is(err, shader.ErrShaderValidation) {
		t.Fatalf("NewShader() error = %v, want ErrShaderValidation", err)
	}
}

var errTarget = errors.New("texture allocation failed")

// targetRenderer fails every render target allocation. Any other call panics through the nil
// embedded interface.
type targetRenderer struct {
	renderer.Renderer
	attempts int
}

func (r *targetRenderer) CreateRenderTexture(string, int, int, wgpu.TextureFormat, wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error) {
	r.attempts++
	return nil, nil, errTarget
}

func TestResizeKeepsTargetsOnFailure(t *testing.T) {
	oldDepth := renderTarget{view: &wgpu.TextureView{}}
	oldGBuffer := &gBuffer{}

	tests := []struct {
		name string
		mode Mode
		new  func(b *base) (Strategy, func() bool)
	}{
		{"naive", ModeNaive, func(b *base) (Strategy, func() bool) {
			s := &naive{base: b, depth: oldDepth}
			return s, func() bool { return s.depth == oldDepth }
		}},
		{"forward plus", ModeForwardPlus, func(b *base) (Strategy, func() bool) {
			s := &forwardPlus{base: b, depth: oldDepth}
			return s, func() bool { return s.depth == oldDepth }
		}},
		{"clustered deferred", ModeClusteredDeferred, func(b *base) (Strategy, func() bool) {
			s := &clusteredDeferred{base: b, gbuffer: oldGBuffer}
			return s, func() bool { return s.gbuffer == oldGBuffer }
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &targetRenderer{}
			s, kept := tt.new(&base{mode: tt.mode, prefix: "test", r: r})
			if err := s.Resize(640, 480); !errors.Is(err, errTarget) {
				t.Fatalf("Resize() error = %v, want %v", err, errTarget)
			}
			if r.attempts == 0 {
				t.Fatal("Resize() did not allocate targets")
			}
			if !kept() {
				t.Error("failed Resize replaced the previous targets")
			}
			if err := s.Resize(0, 480); err != nil {
				t.Errorf("Resize(0, 480) error = %v", err)
			}
		})
	}
}

func TestDrawWithoutTargetsSkipsFrame(t *testing.T) {
	tests := []struct {
		name string
		s    Strategy
	}{
		{"naive", &naive{base: &base{mode: ModeNaive, r: &targetRenderer{}}}},
		{"forward plus", &forwardPlus{base: &base{mode: ModeForwardPlus, r: &targetRenderer{}}}},
		{"clustered deferred", &clusteredDeferred{base: &base{mode: ModeClusteredDeferred, r: &targetRenderer{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Draw()
			if !errors.Is(err, ErrNoRenderTargets) || !errors.Is(err, renderer.ErrSurfaceUnavailable) {
				t.Errorf("Draw() error = %v, want ErrNoRenderTargets wrapping ErrSurfaceUnavailable", err)
			}
		})
	}
}
