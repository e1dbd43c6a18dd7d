package material

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestGPUMaterialParamsMarshal(t *testing.T) {
	p := GPUMaterialParams{
		BaseColor:        [4]float32{0.25, 0.5, 0.75, 1},
		SpecularStrength: 0.3,
		Shininess:        64,
	}
	buf := p.Marshal()
	if len(buf) != 32 || p.Size() != 32 {
		t.Fatalf("params size = %d (Size() %d), want 32", len(buf), p.Size())
	}
	f32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
	}
	tests := []struct {
		name   string
		offset int
		want   float32
	}{
		{"baseColor.r", 0, 0.25},
		{"baseColor.a", 12, 1},
		{"specularStrength", 16, 0.3},
		{"shininess", 20, 64},
		{"pad", 28, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f32(tt.offset); got != tt.want {
				t.Errorf("offset %d = %v, want %v", tt.offset, got, tt.want)
			}
		})
	}
}

func TestBindGroupLayoutDescriptor(t *testing.T) {
	desc, err := BindGroupLayoutDescriptor()
	if err != nil {
		t.Fatalf("BindGroupLayoutDescriptor() error = %v", err)
	}
	if len(desc.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(desc.Entries))
	}
	for _, e := range desc.Entries {
		if e.Visibility != wgpu.ShaderStageFragment {
			t.Errorf("binding %d visibility = %v, want fragment", e.Binding, e.Visibility)
		}
	}
	if desc.Entries[BindingAlbedoTexture].Texture.SampleType != wgpu.TextureSampleTypeFloat {
		t.Errorf("albedo entry = %+v", desc.Entries[BindingAlbedoTexture])
	}
	if desc.Entries[BindingAlbedoSampler].Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		t.Errorf("sampler entry = %+v", desc.Entries[BindingAlbedoSampler])
	}
	params := desc.Entries[BindingParams]
	if params.Buffer.Type != wgpu.BufferBindingTypeUniform || params.Buffer.MinBindingSize != 32 {
		t.Errorf("params entry = %+v", params.Buffer)
	}
}

func TestMaterialPendingWrites(t *testing.T) {
	m := NewMaterial(WithName("red"), WithBaseColor([4]float32{1, 0, 0, 1}))
	if w := m.PendingWrites(); w != nil {
		t.Fatalf("PendingWrites() without a params buffer = %v, want nil", w)
	}

	provider := bind_group_provider.NewBindGroupProvider("red", bind_group_provider.WithBuffer(BindingParams, &wgpu.Buffer{}))
	m.SetBindGroupProvider(provider)

	writes := m.PendingWrites()
	if len(writes) != 1 || writes[0].Binding != BindingParams || len(writes[0].Data) != 32 {
		t.Fatalf("PendingWrites() = %+v", writes)
	}
	if again := m.PendingWrites(); again != nil {
		t.Errorf("second PendingWrites() = %v, want nil", again)
	}

	m.SetSpecular(1, 8)
	writes = m.PendingWrites()
	if len(writes) != 1 {
		t.Fatalf("PendingWrites() after SetSpecular = %v", writes)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(writes[0].Data[20:])); got != 8 {
		t.Errorf("shininess = %v, want 8", got)
	}
}
