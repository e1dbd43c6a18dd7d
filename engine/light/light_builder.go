package light

// LightSetBuilderOption is a function that configures a LightSet instance during construction.
type LightSetBuilderOption func(*lightSetImpl)

// WithMaxLights is an option builder that sets the capacity of the light set.
//
// Parameters:
//   - n: the maximum number of lights
//
// Returns:
//   - LightSetBuilderOption: a function that applies the capacity option to a lightSetImpl
func WithMaxLights(n int) LightSetBuilderOption {
	return func(ls *lightSetImpl) {
		ls.maxLights = n
	}
}

// WithNumLights is an option builder that sets the initial logical light count.
// The value is clamped to the capacity once all options are applied.
//
// Parameters:
//   - n: the initial light count
//
// Returns:
//   - LightSetBuilderOption: a function that applies the light count option to a lightSetImpl
func WithNumLights(n int) LightSetBuilderOption {
	return func(ls *lightSetImpl) {
		ls.numLights = n
	}
}

// WithRadius is an option builder that sets the influence radius shared by every light.
//
// Parameters:
//   - radius: the light radius in world units
//
// Returns:
//   - LightSetBuilderOption: a function that applies the radius option to a lightSetImpl
func WithRadius(radius float32) LightSetBuilderOption {
	return func(ls *lightSetImpl) {
		ls.radius = radius
	}
}

// WithBounds is an option builder that sets the world-space box lights are placed and animated in.
//
// Parameters:
//   - boundsMin: the minimum corner
//   - boundsMax: the maximum corner
//
// Returns:
//   - LightSetBuilderOption: a function that applies the bounds option to a lightSetImpl
func WithBounds(boundsMin, boundsMax [3]float32) LightSetBuilderOption {
	return func(ls *lightSetImpl) {
		ls.boundsMin = boundsMin
		ls.boundsMax = boundsMax
	}
}

// WithSeed is an option builder that sets the seed used for the initial random placement.
//
// Parameters:
//   - seed: the random seed
//
// Returns:
//   - LightSetBuilderOption: a function that applies the seed option to a lightSetImpl
func WithSeed(seed uint64) LightSetBuilderOption {
	return func(ls *lightSetImpl) {
		ls.seed = seed
	}
}
