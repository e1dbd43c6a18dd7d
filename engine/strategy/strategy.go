// Package strategy implements the three interchangeable light-culling render paths: naive
// forward shading, Forward+ and clustered deferred. A Strategy owns the pipelines, bind groups
// and render targets of its path and records one frame per Draw.
package strategy

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
)

// Mode selects a render path.
type Mode int

const (
	// ModeNaive shades every fragment against every light in a single forward pass.
	ModeNaive Mode = iota

	// ModeForwardPlus culls lights into an exponentially sliced cluster grid, lays down depth
	// and then shades forward against each fragment's cluster.
	ModeForwardPlus

	// ModeClusteredDeferred culls lights into a linearly sliced cluster grid, writes a G-buffer
	// and shades once per pixel in a full-screen pass.
	ModeClusteredDeferred
)

// ErrUnknownMode is returned by ParseMode and New for names or values outside the known modes.
var ErrUnknownMode = errors.New("unknown render mode")

var modeNames = map[Mode]string{
	ModeNaive:             "naive",
	ModeForwardPlus:       "forward+",
	ModeClusteredDeferred: "clustered deferred",
}

// Modes returns every render mode in selector order.
func Modes() []Mode {
	return []Mode{ModeNaive, ModeForwardPlus, ModeClusteredDeferred}
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// key returns a pipeline-key-safe form of the mode name.
func (m Mode) key() string {
	switch m {
	case ModeForwardPlus:
		return "forward_plus"
	case ModeClusteredDeferred:
		return "clustered_deferred"
	default:
		return "naive"
	}
}

// ParseMode resolves a mode selector string. Matching ignores case and surrounding whitespace.
//
// Parameters:
//   - name: one of "naive", "forward+" or "clustered deferred"
//
// Returns:
//   - Mode: the matching mode
//   - error: ErrUnknownMode when the name matches no mode
func ParseMode(name string) (Mode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range Modes() {
		if modeNames[m] == name || m.key() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// Strategy is one render path bound to a renderer, camera, light set and scene.
// A Strategy is driven from the render loop goroutine only.
type Strategy interface {
	// Mode returns the render path implemented by the strategy.
	Mode() Mode

	// Draw records and submits one frame. The camera, light and scene buffers must already hold
	// this frame's data. On error the frame is discarded and nothing is submitted.
	//
	// Returns:
	//   - error: an error if any pass failed to record
	Draw() error

	// Resize recreates the size-dependent targets and cluster grid for a new surface size.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	//
	// Returns:
	//   - error: an error if the targets could not be recreated
	Resize(width, height int) error

	// Stop releases every GPU resource the strategy owns. Shared camera, light and scene
	// buffers are left alone. Stop is idempotent.
	Stop()
}

// instanceCount numbers strategy instances so consecutive strategies never share pipeline keys.
var instanceCount atomic.Uint64

// New builds the strategy for mode, registering its pipelines and allocating its buffers and
// render targets. The camera and light set must already hold their GPU buffers. On failure
// everything allocated so far is released.
//
// Parameters:
//   - mode: the render path to build
//   - r: the renderer to allocate on
//   - cam: the camera whose uniform buffer every pass binds
//   - lights: the light set whose storage buffer every pass binds
//   - sc: the scene to draw; it must be uploaded
//   - opts: a variadic list of StrategyBuilderOption functions
//
// Returns:
//   - Strategy: the ready strategy
//   - error: an error if the mode is unknown or any resource could not be created
func New(mode Mode, r renderer.Renderer, cam camera.Camera, lights light.LightSet, sc scene.Scene, opts ...StrategyBuilderOption) (Strategy, error) {
	if _, ok := modeNames[mode]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}
	if !sc.Uploaded() {
		return nil, fmt.Errorf("strategy %s: scene %q not uploaded", mode, sc.Name())
	}

	cfg := newConfig(opts...)
	b := &base{
		mode:   mode,
		prefix: fmt.Sprintf("%s_%d", mode.key(), instanceCount.Add(1)),
		cfg:    cfg,
		r:      r,
		cam:    cam,
		lights: lights,
		scene:  sc,
	}

	var (
		s   Strategy
		err error
	)
	switch mode {
	case ModeNaive:
		s, err = newNaive(b)
	case ModeForwardPlus:
		s, err = newForwardPlus(b)
	case ModeClusteredDeferred:
		s, err = newClusteredDeferred(b)
	}
	if err != nil {
		b.release()
		return nil, fmt.Errorf("strategy %s: %w", mode, err)
	}
	return s, nil
}
