package light

// CullerBuilderOption is a function that configures a Culler instance during construction.
type CullerBuilderOption func(*cullerImpl)

// WithCullMode is an option builder that selects how index pool ranges are reserved.
//
// Parameters:
//   - mode: the reservation mode
//
// Returns:
//   - CullerBuilderOption: a function that applies the mode option to a cullerImpl
func WithCullMode(mode CullMode) CullerBuilderOption {
	return func(c *cullerImpl) {
		c.mode = mode
	}
}

// WithCullRadius is an option builder that sets the light radius tested against each cluster.
//
// Parameters:
//   - radius: the light radius in world units
//
// Returns:
//   - CullerBuilderOption: a function that applies the radius option to a cullerImpl
func WithCullRadius(radius float32) CullerBuilderOption {
	return func(c *cullerImpl) {
		c.radius = radius
	}
}

// WithLightsPerCluster is an option builder that sets the average per-cluster budget used to size
// the index pool. Ignored when WithCapacity is also given.
//
// Parameters:
//   - n: the average number of lights per cluster
//
// Returns:
//   - CullerBuilderOption: a function that applies the budget option to a cullerImpl
func WithLightsPerCluster(n uint32) CullerBuilderOption {
	return func(c *cullerImpl) {
		c.lightsPerCluster = n
	}
}

// WithCapacity is an option builder that sets the index pool capacity directly.
//
// Parameters:
//   - capacity: the number of index slots
//
// Returns:
//   - CullerBuilderOption: a function that applies the capacity option to a cullerImpl
func WithCapacity(capacity uint32) CullerBuilderOption {
	return func(c *cullerImpl) {
		c.capacity = capacity
	}
}

// WithWorkers is an option builder that sets the number of workers used to cull clusters in parallel.
//
// Parameters:
//   - n: the worker count, at least 1
//
// Returns:
//   - CullerBuilderOption: a function that applies the worker option to a cullerImpl
func WithWorkers(n int) CullerBuilderOption {
	return func(c *cullerImpl) {
		c.workers = max(n, 1)
	}
}
