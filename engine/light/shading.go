package light

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultAmbient is the ambient light color. The ambient term is DefaultAmbient × albedo.
var DefaultAmbient = mgl32.Vec3{0.05, 0.05, 0.05}

// Surface is the shading input of one fragment, positions and normals in world space.
type Surface struct {
	Position         mgl32.Vec3
	Normal           mgl32.Vec3
	Albedo           mgl32.Vec3
	SpecularStrength float32
	Shininess        float32
}

// RangeAttenuation returns clamp(1 - dist/radius, 0, 1)², exactly zero at and beyond the radius.
func RangeAttenuation(dist, radius float32) float32 {
	f := mgl32.Clamp(1-dist/radius, 0, 1)
	return f * f
}

// ShadeLight returns the Lambert plus Blinn-Phong contribution of a single light.
//
// Parameters:
//   - l: the light
//   - s: the surface sample
//   - viewDir: the unit vector from the surface toward the eye
//   - radius: the light radius
//
// Returns:
//   - mgl32.Vec3: the radiance added by the light
func ShadeLight(l Light, s Surface, viewDir mgl32.Vec3, radius float32) mgl32.Vec3 {
	toLight := mgl32.Vec3(l.Position).Sub(s.Position)
	dist := toLight.Len()
	atten := RangeAttenuation(dist, radius)
	if atten <= 0 || dist <= 0 {
		return mgl32.Vec3{}
	}

	dir := toLight.Mul(1 / dist)
	ndotl := max(s.Normal.Dot(dir), 0)
	var spec float32
	if ndotl > 0 {
		h := dir.Add(viewDir).Normalize()
		spec = float32(math.Pow(float64(max(s.Normal.Dot(h), 0)), float64(s.Shininess))) * s.SpecularStrength
	}

	var out mgl32.Vec3
	for k := range 3 {
		out[k] = l.Color[k] * atten * (s.Albedo[k]*ndotl + spec)
	}
	return out
}

// Shade accumulates the ambient term and the contribution of the selected lights.
//
// Parameters:
//   - s: the surface sample
//   - eye: the camera position in world space
//   - lights: the light storage
//   - indices: the lights to evaluate; nil evaluates every light
//   - radius: the light radius
//   - ambient: the ambient color
//
// Returns:
//   - mgl32.Vec3: the shaded color
func Shade(s Surface, eye mgl32.Vec3, lights []Light, indices []uint32, radius float32, ambient mgl32.Vec3) mgl32.Vec3 {
	viewDir := eye.Sub(s.Position)
	if viewDir.Len() > 0 {
		viewDir = viewDir.Normalize()
	}

	var color mgl32.Vec3
	if indices == nil {
		for _, l := range lights {
			color = color.Add(ShadeLight(l, s, viewDir, radius))
		}
	} else {
		for _, i := range indices {
			color = color.Add(ShadeLight(lights[i], s, viewDir, radius))
		}
	}
	for k := range 3 {
		color[k] += ambient[k] * s.Albedo[k]
	}
	return color
}
