package engine

import (
	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
	"github.com/Carmen-Shannon/oxy-clustered/engine/strategy"
	"github.com/Carmen-Shannon/oxy-clustered/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables periodic frame statistics in the log.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60
		}
		e.engineTickRate = frameDuration(fps)
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}

// WithWindow sets the window the engine renders into. Required.
//
// Parameters:
//   - w: a spawned Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer supplies an existing renderer. The engine does not release it.
//
// Parameters:
//   - r: a renderer presenting to the engine's window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
		e.ownsRenderer = false
	}
}

// WithRendererOptions sets options for the renderer the engine creates. Ignored with WithRenderer.
//
// Parameters:
//   - opts: renderer options such as renderer.WithPresentMode
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRendererOptions(opts ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOpts = append(e.rendererOpts, opts...)
	}
}

// WithCamera sets the camera. Without it the engine creates one with an orbit controller.
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithLightSet sets the light set. Without it the engine creates one with the default light count.
func WithLightSet(ls light.LightSet) EngineBuilderOption {
	return func(e *engine) {
		e.lights = ls
	}
}

// WithScene sets the scene to draw. Without it the engine uses scene.NewProceduralScene.
func WithScene(s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scene = s
	}
}

// WithMode sets the render mode used when Run starts. Defaults to strategy.ModeForwardPlus.
//
// Parameters:
//   - mode: the initial render mode
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMode(mode strategy.Mode) EngineBuilderOption {
	return func(e *engine) {
		e.initialMode = mode
	}
}

// WithStrategyOptions sets options passed to every strategy the engine builds, including those
// created by later mode switches.
//
// Parameters:
//   - opts: strategy options such as strategy.WithGrid
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithStrategyOptions(opts ...strategy.StrategyBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.strategyOpts = append(e.strategyOpts, opts...)
	}
}
