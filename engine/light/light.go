package light

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
)

const (
	// DefaultMaxLights is the compile-time ceiling on the light set length. The GPU light buffer
	// is always sized for this many lights so raising the logical count never reallocates.
	DefaultMaxLights = 5000

	// DefaultNumLights is the logical light count a new LightSet starts with.
	DefaultNumLights = 500

	// DefaultLightRadius is the influence radius shared by every light in a set.
	DefaultLightRadius float32 = 2.0
)

// DefaultBoundsMin and DefaultBoundsMax describe the world-space box lights are placed and animated in.
var (
	DefaultBoundsMin = [3]float32{-10, 0, -5}
	DefaultBoundsMax = [3]float32{10, 10, 5}
)

// Light is a single point light. Every light in a LightSet shares the set's radius.
type Light struct {
	Position [3]float32
	Color    [3]float32
}

// lightSetImpl is the implementation of the LightSet interface.
type lightSetImpl struct {
	mu *sync.RWMutex

	lights    []Light
	numLights int
	maxLights int
	radius    float32
	boundsMin [3]float32
	boundsMax [3]float32
	seed      uint64

	// gpuNumLights is the count most recently published with UpdateNumLights.
	gpuNumLights int
	headerDirty  bool
	lightsDirty  bool

	bindGroupProvider bind_group_provider.BindGroupProvider
}

// LightSet is the contiguous, ordered sequence of point lights shared by every render strategy.
//
// The backing storage always holds MaxLights entries; NumLights is the logical length that
// culling and shading iterate. Changing the logical length with SetNumLights must be followed by
// UpdateNumLights before the next culling dispatch, otherwise the GPU keeps using the previous
// count.
type LightSet interface {
	// NumLights returns the logical number of active lights.
	//
	// Returns:
	//   - int: the active light count
	NumLights() int

	// GPUNumLights returns the light count most recently published by UpdateNumLights.
	//
	// Returns:
	//   - int: the published light count
	GPUNumLights() int

	// MaxLights returns the capacity of the set.
	//
	// Returns:
	//   - int: the maximum light count
	MaxLights() int

	// Radius returns the influence radius shared by all lights.
	//
	// Returns:
	//   - float32: the light radius
	Radius() float32

	// Bounds returns the world-space box lights live in.
	//
	// Returns:
	//   - [3]float32: the minimum corner
	//   - [3]float32: the maximum corner
	Bounds() ([3]float32, [3]float32)

	// Lights returns a copy of the active lights.
	//
	// Returns:
	//   - []Light: the first NumLights lights
	Lights() []Light

	// Light returns the light at index i of the backing storage.
	//
	// Parameters:
	//   - i: the light index, in [0, MaxLights)
	//
	// Returns:
	//   - Light: the light
	Light(i int) Light

	// SetLight replaces the light at index i and marks the light data for upload.
	//
	// Parameters:
	//   - i: the light index, in [0, MaxLights)
	//   - l: the new light value
	SetLight(i int, l Light)

	// SetNumLights changes the logical light count, clamped to [0, MaxLights].
	//
	// Parameters:
	//   - n: the requested light count
	//
	// Returns:
	//   - int: the count actually applied
	SetNumLights(n int) int

	// UpdateNumLights publishes the current logical count to the GPU header on the next flush.
	UpdateNumLights()

	// Randomize assigns random positions inside the bounds and random saturated colors to every
	// light in the backing storage.
	//
	// Parameters:
	//   - seed: the seed for the deterministic random source
	Randomize(seed uint64)

	// AnimatePositions moves every active light to its animated position at time t.
	// This mirrors the move_lights compute pass and is used when no GPU is present.
	//
	// Parameters:
	//   - t: the animation time in seconds
	//   - speed: the oscillation speed
	AnimatePositions(t, speed float32)

	// MarshalHeader serializes the LightSet header with the published light count.
	//
	// Returns:
	//   - []byte: the 16-byte header
	MarshalHeader() []byte

	// Marshal serializes the header and all MaxLights lights.
	//
	// Returns:
	//   - []byte: the full light buffer contents
	Marshal() []byte

	// BufferSize returns the byte size of the GPU light buffer for this set.
	//
	// Returns:
	//   - uint64: header plus MaxLights light records
	BufferSize() uint64

	// PendingWrites returns the buffer writes required to bring the GPU light buffer up to date
	// and clears the dirty state. Returns nil when nothing changed or no provider is attached.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the writes to submit
	PendingWrites() []bind_group_provider.BufferWrite

	// BindGroupProvider returns the provider holding the GPU light buffer at binding 0.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider, or nil if unset
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// SetBindGroupProvider attaches the provider holding the GPU light buffer and marks the
	// whole set for upload.
	//
	// Parameters:
	//   - provider: the provider
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)
}

var _ LightSet = &lightSetImpl{}

// NewLightSet creates a LightSet with randomized lights and any provided options applied.
//
// Parameters:
//   - opts: variadic list of LightSetBuilderOption functions to configure the set
//
// Returns:
//   - LightSet: the new light set
func NewLightSet(opts ...LightSetBuilderOption) LightSet {
	ls := &lightSetImpl{
		mu:        &sync.RWMutex{},
		numLights: DefaultNumLights,
		maxLights: DefaultMaxLights,
		radius:    DefaultLightRadius,
		boundsMin: DefaultBoundsMin,
		boundsMax: DefaultBoundsMax,
		seed:      1,
	}
	for _, opt := range opts {
		opt(ls)
	}
	ls.maxLights = max(ls.maxLights, 0)
	ls.numLights = min(max(ls.numLights, 0), ls.maxLights)
	ls.gpuNumLights = ls.numLights
	ls.lights = make([]Light, ls.maxLights)
	ls.randomize(ls.seed)
	return ls
}

func (ls *lightSetImpl) NumLights() int {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.numLights
}

func (ls *lightSetImpl) GPUNumLights() int {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.gpuNumLights
}

func (ls *lightSetImpl) MaxLights() int {
	return ls.maxLights
}

func (ls *lightSetImpl) Radius() float32 {
	return ls.radius
}

func (ls *lightSetImpl) Bounds() ([3]float32, [3]float32) {
	return ls.boundsMin, ls.boundsMax
}

func (ls *lightSetImpl) Lights() []Light {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	out := make([]Light, ls.numLights)
	copy(out, ls.lights[:ls.numLights])
	return out
}

func (ls *lightSetImpl) Light(i int) Light {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.lights[i]
}

func (ls *lightSetImpl) SetLight(i int, l Light) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.lights[i] = l
	ls.lightsDirty = true
}

func (ls *lightSetImpl) SetNumLights(n int) int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.numLights = min(max(n, 0), ls.maxLights)
	return ls.numLights
}

func (ls *lightSetImpl) UpdateNumLights() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.gpuNumLights = ls.numLights
	ls.headerDirty = true
}

func (ls *lightSetImpl) Randomize(seed uint64) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.randomize(seed)
}

func (ls *lightSetImpl) AnimatePositions(t, speed float32) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for i := range ls.numLights {
		ls.lights[i].Position = AnimatedPosition(uint32(i), t, speed, ls.boundsMin, ls.boundsMax)
	}
	ls.lightsDirty = true
}

func (ls *lightSetImpl) MarshalHeader() []byte {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	h := GPULightSetHeader{NumLights: uint32(ls.gpuNumLights)}
	return h.Marshal()
}

func (ls *lightSetImpl) Marshal() []byte {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return MarshalLightSet(ls.lights, ls.gpuNumLights)
}

func (ls *lightSetImpl) BufferSize() uint64 {
	return LightSetBufferSize(ls.maxLights)
}

func (ls *lightSetImpl) PendingWrites() []bind_group_provider.BufferWrite {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.bindGroupProvider == nil {
		return nil
	}
	switch {
	case ls.lightsDirty:
		ls.lightsDirty, ls.headerDirty = false, false
		return []bind_group_provider.BufferWrite{{
			Provider: ls.bindGroupProvider,
			Binding:  0,
			Data:     MarshalLightSet(ls.lights, ls.gpuNumLights),
		}}
	case ls.headerDirty:
		ls.headerDirty = false
		h := GPULightSetHeader{NumLights: uint32(ls.gpuNumLights)}
		return []bind_group_provider.BufferWrite{{
			Provider: ls.bindGroupProvider,
			Binding:  0,
			Data:     h.Marshal(),
		}}
	}
	return nil
}

func (ls *lightSetImpl) BindGroupProvider() bind_group_provider.BindGroupProvider {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.bindGroupProvider
}

func (ls *lightSetImpl) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.bindGroupProvider = provider
	ls.lightsDirty = true
}

// randomize fills the whole backing storage. Callers hold the write lock.
func (ls *lightSetImpl) randomize(seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range ls.lights {
		var pos [3]float32
		for k := range 3 {
			pos[k] = ls.boundsMin[k] + rng.Float32()*(ls.boundsMax[k]-ls.boundsMin[k])
		}
		ls.lights[i] = Light{
			Position: pos,
			Color:    saturatedColor(rng.Float32()),
		}
	}
	ls.lightsDirty = true
}

// saturatedColor converts a hue in [0, 1) to a fully saturated RGB color.
func saturatedColor(hue float32) [3]float32 {
	h := float64(hue) * 6
	x := float32(1 - math.Abs(math.Mod(h, 2)-1))
	switch int(h) % 6 {
	case 0:
		return [3]float32{1, x, 0}
	case 1:
		return [3]float32{x, 1, 0}
	case 2:
		return [3]float32{0, 1, x}
	case 3:
		return [3]float32{0, x, 1}
	case 4:
		return [3]float32{x, 0, 1}
	default:
		return [3]float32{1, 0, x}
	}
}
