package light

import "math"

// MoveLightsWorkgroupSize is the workgroup size of the light animation compute pass.
const MoveLightsWorkgroupSize = 128

// DefaultAnimationSpeed is the oscillation speed used by the renderers.
const DefaultAnimationSpeed float32 = 1.0

// hashU32 is the integer hash shared with the move_lights compute shader.
func hashU32(x uint32) uint32 {
	h := x*747796405 + 2891336453
	h = ((h >> ((h >> 28) + 4)) ^ h) * 277803737
	return (h >> 22) ^ h
}

// hashUnit maps hashU32(x) onto [0, 1].
func hashUnit(x uint32) float32 {
	return float32(hashU32(x)) / 4294967295.0
}

// AnimatedPosition returns the position of light i at time t. The x and z coordinates are fixed
// per light; y oscillates between the bounds with a per-light phase. The move_lights compute pass
// evaluates the same function.
//
// Parameters:
//   - i: the light index
//   - t: the animation time in seconds
//   - speed: the oscillation speed
//   - boundsMin: the minimum corner of the light box
//   - boundsMax: the maximum corner of the light box
//
// Returns:
//   - [3]float32: the world-space light position
func AnimatedPosition(i uint32, t, speed float32, boundsMin, boundsMax [3]float32) [3]float32 {
	rx := hashUnit(i*3 + 0)
	ry := hashUnit(i*3 + 1)
	rz := hashUnit(i*3 + 2)

	wave := 0.5 + 0.5*float32(math.Sin(float64(t*speed+ry*2*math.Pi)))
	return [3]float32{
		boundsMin[0] + (boundsMax[0]-boundsMin[0])*rx,
		boundsMin[1] + (boundsMax[1]-boundsMin[1])*wave,
		boundsMin[2] + (boundsMax[2]-boundsMin[2])*rz,
	}
}
