package strategy

import (
	"time"

	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultCullWorkgroupSize is the number of invocations cooperating on one cluster in the
// culling pass.
const DefaultCullWorkgroupSize = 64

// Config holds the tunables shared by every strategy.
type Config struct {
	ClustersX, ClustersY, ClustersZ uint32
	LightsPerCluster                uint32
	CullWorkgroupSize               uint32

	Ambient    mgl32.Vec3
	ClearColor wgpu.Color

	AnimateLights  bool
	AnimationSpeed float32

	// Clock returns the animation time. Defaults to the time elapsed since New.
	Clock func() time.Duration

	ValidateShaders bool
}

// StrategyBuilderOption is a functional option for configuring a Strategy.
type StrategyBuilderOption func(*Config)

func newConfig(opts ...StrategyBuilderOption) Config {
	cfg := Config{
		ClustersX:         light.DefaultClustersX,
		ClustersY:         light.DefaultClustersY,
		ClustersZ:         light.DefaultClustersZ,
		LightsPerCluster:  light.DefaultLightsPerCluster,
		CullWorkgroupSize: DefaultCullWorkgroupSize,
		Ambient:           light.DefaultAmbient,
		ClearColor:        wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		AnimateLights:     true,
		AnimationSpeed:    light.DefaultAnimationSpeed,
		ValidateShaders:   true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Clock == nil {
		start := time.Now()
		cfg.Clock = func() time.Duration { return time.Since(start) }
	}
	return cfg
}

// WithGrid sets the cluster grid dimensions. Zero dimensions are ignored.
//
// Parameters:
//   - x: tiles across the screen
//   - y: tiles down the screen
//   - z: depth slices
//
// Returns:
//   - StrategyBuilderOption: a function that sets the grid dimensions
func WithGrid(x, y, z uint32) StrategyBuilderOption {
	return func(c *Config) {
		if x > 0 && y > 0 && z > 0 {
			c.ClustersX, c.ClustersY, c.ClustersZ = x, y, z
		}
	}
}

// WithLightsPerCluster sets the average per-cluster budget used to size the light index pool.
//
// Parameters:
//   - n: lights per cluster, ignored when zero
//
// Returns:
//   - StrategyBuilderOption: a function that sets the budget
func WithLightsPerCluster(n uint32) StrategyBuilderOption {
	return func(c *Config) {
		if n > 0 {
			c.LightsPerCluster = n
		}
	}
}

// WithCullWorkgroupSize sets the number of invocations per cluster in the culling pass.
func WithCullWorkgroupSize(n uint32) StrategyBuilderOption {
	return func(c *Config) {
		if n > 0 {
			c.CullWorkgroupSize = n
		}
	}
}

// WithAmbient sets the ambient light color.
//
// Parameters:
//   - r, g, b: the ambient color components
//
// Returns:
//   - StrategyBuilderOption: a function that sets the ambient color
func WithAmbient(r, g, b float32) StrategyBuilderOption {
	return func(c *Config) {
		c.Ambient = mgl32.Vec3{r, g, b}
	}
}

// WithClearColor sets the background color.
func WithClearColor(color wgpu.Color) StrategyBuilderOption {
	return func(c *Config) {
		c.ClearColor = color
	}
}

// WithLightAnimation enables or disables the GPU light animation pass.
func WithLightAnimation(enabled bool) StrategyBuilderOption {
	return func(c *Config) {
		c.AnimateLights = enabled
	}
}

// WithAnimationSpeed sets the angular speed of the light animation.
func WithAnimationSpeed(speed float32) StrategyBuilderOption {
	return func(c *Config) {
		c.AnimationSpeed = speed
	}
}

// WithClock replaces the animation time source.
//
// Parameters:
//   - clock: returns the current animation time
//
// Returns:
//   - StrategyBuilderOption: a function that sets the clock
func WithClock(clock func() time.Duration) StrategyBuilderOption {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithShaderValidation enables or disables naga validation of every strategy shader.
func WithShaderValidation(enabled bool) StrategyBuilderOption {
	return func(c *Config) {
		c.ValidateShaders = enabled
	}
}
