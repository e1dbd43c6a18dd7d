package engine

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/benchmark"
	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/profiler"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-clustered/engine/scene"
	"github.com/Carmen-Shannon/oxy-clustered/engine/strategy"
	"github.com/Carmen-Shannon/oxy-clustered/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrModeSwitchPending is delivered by SetMode when too many switches are already queued.
	ErrModeSwitchPending = errors.New("mode switch queue full")

	// ErrBenchmarkRunning is returned by RunBenchmark while a sweep is in progress.
	ErrBenchmarkRunning = errors.New("benchmark already running")

	// ErrNotRunning is delivered to requests still queued when the engine shuts down.
	ErrNotRunning = errors.New("engine not running")
)

// modeQueueSize bounds the number of mode switches waiting for a frame boundary.
const modeQueueSize = 4

type modeRequest struct {
	mode   strategy.Mode
	result chan error
}

type benchmarkRequest struct {
	options []benchmark.BenchmarkBuilderOption
	results chan []benchmark.Result
}

// frameContext is the state owned by the render goroutine between frames.
type frameContext struct {
	strategy  strategy.Strategy
	benchmark benchmark.Benchmark
	results   chan []benchmark.Result
	frames    uint64
}

// engine implements the Engine interface.
// Coordinates the tick, render and window threads.
type engine struct {
	tickRateChannel chan time.Duration
	modeRequests    chan modeRequest
	lightRequests   chan int
	resizeRequests  chan [2]int
	benchRequests   chan benchmarkRequest

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once
	errMu       sync.Mutex
	runErr      error

	window   window.Window
	renderer renderer.Renderer
	camera   camera.Camera
	lights   light.LightSet
	scene    scene.Scene

	ownsRenderer bool
	rendererOpts []renderer.RendererBuilderOption
	ownedBuffers []*wgpu.Buffer
	benchActive  atomic.Bool

	initialMode  strategy.Mode
	mode         atomic.Int32
	strategyOpts []strategy.StrategyBuilderOption
	newStrategy  func(mode strategy.Mode) (strategy.Strategy, error)
	frame        frameContext
	start        time.Time
	title        atomic.Pointer[string]

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate   time.Duration
	tickCallback     func(deltaTime float32)
	renderCallback   func(deltaTime float32)
	renderFrameLimit time.Duration
}

// Engine is the main entry point for the clustered lighting renderer.
// It owns the window, the render loop and the active render strategy, and applies mode, light count
// and resize requests at frame boundaries.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Camera returns the camera the strategies render from.
	//
	// Returns:
	//   - camera.Camera: the camera instance
	Camera() camera.Camera

	// Lights returns the light set shared by every strategy.
	//
	// Returns:
	//   - light.LightSet: the light set
	Lights() light.LightSet

	// Mode returns the render mode of the active strategy, or the configured initial mode before Run.
	//
	// Returns:
	//   - strategy.Mode: the active mode
	Mode() strategy.Mode

	// SetMode requests a switch to another render path. The switch happens at the next frame
	// boundary. If building the new strategy fails, the previous one stays active and the error is
	// delivered on the returned channel.
	//
	// Parameters:
	//   - mode: the requested render mode
	//
	// Returns:
	//   - <-chan error: receives exactly one value, nil once the mode is active
	SetMode(mode strategy.Mode) <-chan error

	// SetNumLights requests a new active light count, clamped to [0, MaxLights].
	// The latest request wins if several arrive within one frame.
	//
	// Parameters:
	//   - n: the requested light count
	//
	// Returns:
	//   - int: the clamped count that will be applied
	SetNumLights(n int) int

	// RunBenchmark starts a light-count sweep on the active mode.
	//
	// Parameters:
	//   - options: benchmark configuration
	//
	// Returns:
	//   - <-chan []benchmark.Result: receives the results once the sweep finishes
	//   - error: ErrBenchmarkRunning if a sweep is queued or in progress
	RunBenchmark(options ...benchmark.BenchmarkBuilderOption) (<-chan []benchmark.Result, error)

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick, for camera and input logic.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each presented frame on the render goroutine.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run creates the GPU resources and the initial strategy, then runs the window message loop
	// until the window closes or Quit is called. Must be called from the main goroutine.
	//
	// Returns:
	//   - error: a setup error, or the frame error that ended the session
	Run() error

	// Quit signals all engine goroutines to stop. Safe to call multiple times.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// A window is required; every other collaborator has a default created by Run.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if no window was provided
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		modeRequests:    make(chan modeRequest, modeQueueSize),
		lightRequests:   make(chan int, 1),
		resizeRequests:  make(chan [2]int, 1),
		benchRequests:   make(chan benchmarkRequest, 1),
		quitChannel:     make(chan struct{}),
		initialMode:     strategy.ModeForwardPlus,
		engineTickRate:  time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.window == nil {
		return nil, errors.New("engine: a window is required")
	}
	if e.lights == nil {
		e.lights = light.NewLightSet()
	}
	if e.scene == nil {
		e.scene = scene.NewProceduralScene()
	}
	if e.camera == nil {
		e.camera = camera.NewCamera(
			camera.WithResolution(e.window.Width(), e.window.Height()),
			camera.WithController(camera.NewCameraController()),
		)
	}
	e.mode.Store(int32(e.initialMode))
	e.newStrategy = e.buildStrategy
	e.profiler = profiler.NewProfiler(profiler.WithReportCallback(e.onProfilerReport))
	e.profiler.SetLabel(e.initialMode.String())
	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Lights() light.LightSet {
	return e.lights
}

func (e *engine) Mode() strategy.Mode {
	return strategy.Mode(e.mode.Load())
}

func (e *engine) SetMode(mode strategy.Mode) <-chan error {
	result := make(chan error, 1)
	select {
	case e.modeRequests <- modeRequest{mode: mode, result: result}:
	default:
		result <- fmt.Errorf("%w: %s", ErrModeSwitchPending, mode)
	}
	return result
}

func (e *engine) SetNumLights(n int) int {
	n = min(max(n, 0), e.lights.MaxLights())
	replaceLatest(e.lightRequests, n)
	return n
}

func (e *engine) RunBenchmark(options ...benchmark.BenchmarkBuilderOption) (<-chan []benchmark.Result, error) {
	if !e.benchActive.CompareAndSwap(false, true) {
		return nil, ErrBenchmarkRunning
	}
	results := make(chan []benchmark.Result, 1)
	e.benchRequests <- benchmarkRequest{options: options, results: results}
	return results, nil
}

// replaceLatest sends v on a single-slot channel, dropping any value not yet consumed.
func replaceLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (e *engine) Run() error {
	if err := e.init(); err != nil {
		e.release()
		return err
	}
	e.start = time.Now()
	e.running.Store(true)
	common.Logger().Info("engine started", "mode", e.Mode().String(), "lights", e.lights.NumLights())

	e.window.SetResizeCallback(func(width, height int) {
		replaceLatest(e.resizeRequests, [2]int{width, height})
	})
	e.window.SetUpdateCallback(e.onWindowUpdate)

	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()

	e.release()
	common.Logger().Info("engine stopped")
	return e.err()
}

// init creates the renderer, the shared camera and light buffers, uploads the scene and builds
// the initial strategy.
func (e *engine) init() error {
	if e.renderer == nil {
		r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, e.window, e.rendererOpts...)
		if err != nil {
			return fmt.Errorf("create renderer: %w", err)
		}
		e.renderer = r
		e.ownsRenderer = true
	}

	width, height := e.renderer.SurfaceSize()
	e.camera.SetResolution(width, height)

	if err := e.initCameraBuffer(); err != nil {
		return err
	}
	if err := e.initLightBuffer(); err != nil {
		return err
	}

	if !e.scene.Uploaded() {
		if err := e.scene.Upload(e.renderer); err != nil {
			return fmt.Errorf("upload scene %s: %w", e.scene.Name(), err)
		}
	}
	if err := e.writePending(); err != nil {
		return fmt.Errorf("initial buffer upload: %w", err)
	}

	s, err := e.newStrategy(e.initialMode)
	if err != nil {
		return err
	}
	e.frame.strategy = s
	e.mode.Store(int32(s.Mode()))
	return nil
}

// initCameraBuffer gives the camera a uniform buffer unless it already has one.
func (e *engine) initCameraBuffer() error {
	provider := e.camera.BindGroupProvider()
	if provider == nil {
		provider = bind_group_provider.NewBindGroupProvider("camera")
		e.camera.SetBindGroupProvider(provider)
	}
	if provider.Buffer(0) != nil {
		return nil
	}
	u := camera.GPUCameraUniform{}
	buf, err := e.renderer.CreateBuffer("camera_uniform", uint64(u.Size()), wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return fmt.Errorf("camera uniform buffer: %w", err)
	}
	e.ownedBuffers = append(e.ownedBuffers, buf)
	provider.SetSharedBuffer(0, buf)
	return nil
}

// initLightBuffer gives the light set a storage buffer sized for its maximum light count.
func (e *engine) initLightBuffer() error {
	if p := e.lights.BindGroupProvider(); p != nil && p.Buffer(0) != nil {
		return nil
	}
	buf, err := e.renderer.CreateBuffer("light_set", e.lights.BufferSize(), wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return fmt.Errorf("light set buffer: %w", err)
	}
	e.ownedBuffers = append(e.ownedBuffers, buf)
	e.lights.SetBindGroupProvider(bind_group_provider.NewBindGroupProvider("light_set",
		bind_group_provider.WithSharedBuffer(0, buf),
	))
	return nil
}

func (e *engine) buildStrategy(mode strategy.Mode) (strategy.Strategy, error) {
	opts := make([]strategy.StrategyBuilderOption, 0, len(e.strategyOpts)+1)
	opts = append(opts, strategy.WithClock(e.clock))
	opts = append(opts, e.strategyOpts...)
	return strategy.New(mode, e.renderer, e.camera, e.lights, e.scene, opts...)
}

// clock is the light animation time. It is shared across strategies so a mode switch does not
// restart the animation.
func (e *engine) clock() time.Duration {
	if e.start.IsZero() {
		return 0
	}
	return time.Since(e.start)
}

// release frees everything the engine created, plus the uploaded scene resources. A renderer passed
// in by options is left alone.
func (e *engine) release() {
	if e.frame.strategy != nil {
		e.frame.strategy.Stop()
		e.frame.strategy = nil
	}
	e.finishBenchmark(false)
	e.drainRequests()
	if e.scene != nil && e.scene.Uploaded() {
		e.scene.Release()
	}
	if len(e.ownedBuffers) > 0 {
		if p := e.camera.BindGroupProvider(); p != nil {
			p.Release()
		}
		if p := e.lights.BindGroupProvider(); p != nil {
			p.Release()
		}
	}
	for _, buf := range e.ownedBuffers {
		buf.Release()
	}
	e.ownedBuffers = nil
	if e.ownsRenderer && e.renderer != nil {
		e.renderer.Release()
		e.renderer = nil
	}
}

// drainRequests answers mode switches that will never be applied.
func (e *engine) drainRequests() {
	for {
		select {
		case req := <-e.modeRequests:
			req.result <- ErrNotRunning
		case req := <-e.benchRequests:
			close(req.results)
			e.benchActive.Store(false)
		default:
			return
		}
	}
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// fail records the error that ends the session and signals quit.
func (e *engine) fail(err error) {
	e.errMu.Lock()
	if e.runErr == nil {
		e.runErr = err
	}
	e.errMu.Unlock()
	common.Logger().Error("render loop stopped", "err", err)
	e.signalQuit()
}

func (e *engine) err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.runErr
}

// onWindowUpdate runs on the main thread once per message loop iteration.
func (e *engine) onWindowUpdate() {
	select {
	case <-e.quitChannel:
		e.window.RequestClose()
		return
	default:
	}
	if title := e.title.Load(); title != nil {
		e.window.SetTitle(*title)
	}
}

func (e *engine) onProfilerReport(s profiler.Stats) {
	title := fmt.Sprintf("oxy-clustered | %s | %d lights | %.0f FPS", e.Mode(), e.lights.NumLights(), s.FPS)
	if b := e.frame.benchmark; b != nil {
		title += " | " + b.Status()
	}
	e.title.Store(&title)
}

// handle launches the tick, render and quit goroutines.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the render loop on a goroutine locked to its OS thread.
// Each iteration applies queued requests, uploads dirty uniforms and draws exactly one frame with
// the active strategy. A frame error ends the session.
func (e *engine) handleRender() {
	defer e.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer func() {
		if r := recover(); r != nil {
			e.fail(fmt.Errorf("render goroutine panic: %v", r))
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		presented, err := e.renderFrame(now)
		if err != nil {
			e.fail(err)
			return
		}

		if presented {
			if e.renderCallback != nil {
				e.renderCallback(dt)
			}
			if e.profilingEnabled {
				e.profiler.Tick()
			}
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// renderFrame runs one frame boundary and one frame.
//
// Returns:
//   - bool: true if a frame was presented
//   - error: a fatal frame error
func (e *engine) renderFrame(now time.Time) (bool, error) {
	if err := e.applyRequests(now); err != nil {
		return false, err
	}
	if e.frame.strategy == nil {
		return false, nil
	}

	e.camera.Update()
	if err := e.writePending(); err != nil {
		return false, fmt.Errorf("upload frame data: %w", err)
	}

	if err := e.frame.strategy.Draw(); err != nil {
		if errors.Is(err, renderer.ErrSurfaceUnavailable) {
			common.Logger().Debug("frame skipped", "err", err)
			return false, nil
		}
		return false, fmt.Errorf("draw %s: %w", e.frame.strategy.Mode(), err)
	}
	e.renderer.Present()
	e.frame.frames++

	e.tickBenchmark(now)
	return true, nil
}

// writePending uploads the dirty camera, light and scene data.
func (e *engine) writePending() error {
	var writes []bind_group_provider.BufferWrite
	writes = append(writes, e.camera.PendingWrites()...)
	writes = append(writes, e.lights.PendingWrites()...)
	writes = append(writes, e.scene.PendingWrites()...)
	if len(writes) == 0 {
		return nil
	}
	return e.renderer.WriteBuffers(writes)
}

// applyRequests handles everything queued since the previous frame, in a fixed order: resize,
// light count, mode switches, then a benchmark start.
func (e *engine) applyRequests(now time.Time) error {
	select {
	case size := <-e.resizeRequests:
		if err := e.resize(size[0], size[1]); err != nil {
			return err
		}
	default:
	}

	select {
	case n := <-e.lightRequests:
		e.setLightCount(n)
	default:
	}

	for drained := false; !drained; {
		select {
		case req := <-e.modeRequests:
			req.result <- e.switchMode(req.mode)
		default:
			drained = true
		}
	}

	select {
	case req := <-e.benchRequests:
		e.startBenchmark(req, now)
	default:
	}
	return nil
}

// resize reconfigures the surface and rebuilds the active strategy's size-dependent resources.
// A zero size, such as a minimized window, is ignored.
func (e *engine) resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	e.renderer.Resize(width, height)
	e.camera.SetResolution(width, height)
	if e.frame.strategy != nil {
		if err := e.frame.strategy.Resize(width, height); err != nil {
			return fmt.Errorf("resize %s: %w", e.frame.strategy.Mode(), err)
		}
	}
	common.Logger().Debug("surface resized", "width", width, "height", height)
	return nil
}

func (e *engine) setLightCount(n int) {
	applied := e.lights.SetNumLights(n)
	e.lights.UpdateNumLights()
	common.Logger().Debug("light count changed", "lights", applied)
}

// switchMode builds the requested strategy and replaces the active one. On failure the active
// strategy is kept.
func (e *engine) switchMode(mode strategy.Mode) error {
	current := e.frame.strategy
	if current != nil && current.Mode() == mode {
		return nil
	}
	next, err := e.newStrategy(mode)
	if err != nil {
		common.Logger().Warn("mode switch failed", "mode", mode.String(), "err", err)
		return err
	}
	if current != nil {
		current.Stop()
	}
	e.frame.strategy = next
	e.mode.Store(int32(mode))
	e.profiler.SetLabel(mode.String())
	common.Logger().Info("render mode changed", "mode", mode.String())
	return nil
}

func (e *engine) startBenchmark(req benchmarkRequest, now time.Time) {
	opts := append([]benchmark.BenchmarkBuilderOption{benchmark.WithLabel(e.Mode().String())}, req.options...)
	e.frame.benchmark = benchmark.NewBenchmark(e.lights.MaxLights(), e.setLightCount, opts...)
	e.frame.results = req.results
	if e.frame.benchmark.Frame(now) {
		e.finishBenchmark(true)
	}
}

func (e *engine) tickBenchmark(now time.Time) {
	if e.frame.benchmark == nil {
		return
	}
	if e.frame.benchmark.Frame(now) {
		e.finishBenchmark(true)
	}
}

// finishBenchmark delivers the results of the running sweep. Incomplete sweeps deliver nothing.
func (e *engine) finishBenchmark(complete bool) {
	b := e.frame.benchmark
	if b == nil {
		return
	}
	if complete {
		common.Logger().Info("benchmark finished", "mode", e.Mode().String(), "report", b.Report())
		e.frame.results <- b.Results()
	}
	close(e.frame.results)
	e.frame.benchmark, e.frame.results = nil, nil
	e.benchActive.Store(false)
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)
	if e.running.Load() {
		replaceLatest(e.tickRateChannel, newRate)
		return
	}
	e.engineTickRate = newRate
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

// frameDuration converts a frame rate cap into a minimum frame duration. Non-positive rates uncap.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
