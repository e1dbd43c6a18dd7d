package light

import (
	"math"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GBufferTexel is one pixel of the geometry buffer after storage quantization: albedo and specular
// in rgba8unorm, normal and position in rgba16float and depth in a 24-bit normalized depth buffer.
type GBufferTexel struct {
	Albedo   [4]float32
	Normal   [4]float32
	Position [4]float32
	Specular [4]float32
	Depth    float32
}

// ShadingFrame is the per-frame state read by both shading paths.
type ShadingFrame struct {
	Grid    ClusterGrid
	View    mgl32.Mat4
	Proj    mgl32.Mat4
	Eye     mgl32.Vec3
	Lights  []Light
	Cull    CullResult
	Radius  float32
	Ambient mgl32.Vec3
}

// ClipDepth returns the depth buffer value of a world-space point.
//
// Parameters:
//   - p: the world-space point
//   - view: the camera view matrix
//   - proj: the camera projection matrix
//
// Returns:
//   - float32: the normalized device depth in [0, 1] for points inside the frustum
func ClipDepth(p mgl32.Vec3, view, proj mgl32.Mat4) float32 {
	clip := proj.Mul4(view).Mul4x1(p.Vec4(1))
	return clip.Z() / clip.W()
}

// EncodeGBuffer writes a surface sample the way the geometry pass does, including the precision
// loss of each render target format.
//
// Parameters:
//   - s: the surface sample
//   - depth: the depth buffer value written by the pre-pass
//
// Returns:
//   - GBufferTexel: the quantized texel
func EncodeGBuffer(s Surface, depth float32) GBufferTexel {
	return GBufferTexel{
		Albedo:   [4]float32{unorm8(s.Albedo[0]), unorm8(s.Albedo[1]), unorm8(s.Albedo[2]), 1},
		Normal:   [4]float32{half(s.Normal[0]), half(s.Normal[1]), half(s.Normal[2]), 0},
		Position: [4]float32{half(s.Position[0]), half(s.Position[1]), half(s.Position[2]), 1},
		Specular: [4]float32{unorm8(s.SpecularStrength), unorm8(s.Shininess / 255), 0, 1},
		Depth:    unorm24(depth),
	}
}

// Surface decodes the texel the way the deferred shading pass does.
//
// Returns:
//   - Surface: the reconstructed surface sample
func (t GBufferTexel) Surface() Surface {
	n := mgl32.Vec3{t.Normal[0], t.Normal[1], t.Normal[2]}
	if n.Len() > 0 {
		n = n.Normalize()
	}
	return Surface{
		Position:         mgl32.Vec3{t.Position[0], t.Position[1], t.Position[2]},
		Normal:           n,
		Albedo:           mgl32.Vec3{t.Albedo[0], t.Albedo[1], t.Albedo[2]},
		SpecularStrength: t.Specular[0],
		Shininess:        t.Specular[1] * 255,
	}
}

// ShadeForward shades a fragment the way the Forward+ pass does: the cluster comes from the
// fragment coordinates and the view depth of the interpolated position.
//
// Parameters:
//   - f: the frame state
//   - fragX, fragY: the fragment coordinates, origin top-left
//   - s: the interpolated surface sample
//
// Returns:
//   - mgl32.Vec3: the shaded color
func ShadeForward(f ShadingFrame, fragX, fragY float32, s Surface) mgl32.Vec3 {
	viewDepth := -f.View.Mul4x1(s.Position.Vec4(1)).Z()
	c := f.Grid.ClusterForFragment(fragX, fragY, viewDepth)
	return Shade(s, f.Eye, f.Lights, f.Cull.ClusterLights(c), f.Radius, f.Ambient)
}

// ShadeDeferred shades a fragment the way the full-screen deferred pass does: the cluster comes from
// the fragment coordinates and the view depth reconstructed from the depth buffer.
//
// Parameters:
//   - f: the frame state
//   - fragX, fragY: the fragment coordinates, origin top-left
//   - t: the G-buffer texel under the fragment
//
// Returns:
//   - mgl32.Vec3: the shaded color
func ShadeDeferred(f ShadingFrame, fragX, fragY float32, t GBufferTexel) mgl32.Vec3 {
	viewDepth := common.LinearizeDepth(t.Depth, f.Grid.Near, f.Grid.Far)
	c := f.Grid.ClusterForFragment(fragX, fragY, viewDepth)
	return Shade(t.Surface(), f.Eye, f.Lights, f.Cull.ClusterLights(c), f.Radius, f.Ambient)
}

func unorm8(v float32) float32 {
	return float32(math.Round(float64(mgl32.Clamp(v, 0, 1))*255)) / 255
}

func unorm24(v float32) float32 {
	const steps = 1<<24 - 1
	return float32(math.Round(float64(mgl32.Clamp(v, 0, 1))*steps) / steps)
}

// half rounds v to the nearest binary16 value with ties to even.
func half(v float32) float32 {
	const maxHalf = 65504
	if v == 0 || math.IsNaN(float64(v)) {
		return v
	}
	if math.Abs(float64(v)) >= maxHalf {
		return float32(math.Copysign(maxHalf, float64(v)))
	}

	_, exp := math.Frexp(float64(v))
	// binary16 keeps 11 significant bits; subnormals share the 2^-24 quantum.
	quantum := math.Ldexp(1, max(exp-11, -24))
	return float32(math.RoundToEven(float64(v)/quantum) * quantum)
}
