package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-clustered/engine/benchmark"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/profiler"
	"github.com/Carmen-Shannon/oxy-clustered/engine/strategy"
)

type fakeStrategy struct {
	mode    strategy.Mode
	stopped bool
	resized [2]int
}

func (f *fakeStrategy) Mode() strategy.Mode { return f.mode }
func (f *fakeStrategy) Draw() error         { return nil }
func (f *fakeStrategy) Stop()               { f.stopped = true }

func (f *fakeStrategy) Resize(width, height int) error {
	f.resized = [2]int{width, height}
	return nil
}

var errBuild = errors.New("pipeline creation failed")

// newTestEngine builds an engine without a window or GPU. Building ModeNaive fails.
func newTestEngine(t *testing.T) (*engine, *[]*fakeStrategy) {
	t.Helper()
	var built []*fakeStrategy
	e := &engine{
		modeRequests:   make(chan modeRequest, modeQueueSize),
		lightRequests:  make(chan int, 1),
		resizeRequests: make(chan [2]int, 1),
		benchRequests:  make(chan benchmarkRequest, 1),
		quitChannel:    make(chan struct{}),
		lights:         light.NewLightSet(light.WithMaxLights(100), light.WithNumLights(10)),
		profiler:       profiler.NewProfiler(profiler.WithMemStats(false)),
	}
	e.newStrategy = func(mode strategy.Mode) (strategy.Strategy, error) {
		if mode == strategy.ModeNaive {
			return nil, errBuild
		}
		s := &fakeStrategy{mode: mode}
		built = append(built, s)
		return s, nil
	}
	s, err := e.newStrategy(strategy.ModeForwardPlus)
	if err != nil {
		t.Fatal(err)
	}
	e.frame.strategy = s
	e.mode.Store(int32(strategy.ModeForwardPlus))
	return e, &built
}

func TestSetModeAppliesAtFrameBoundary(t *testing.T) {
	e, built := newTestEngine(t)
	first := (*built)[0]

	result := e.SetMode(strategy.ModeClusteredDeferred)
	if e.Mode() != strategy.ModeForwardPlus {
		t.Fatalf("mode changed before the frame boundary: %s", e.Mode())
	}
	if err := e.applyRequests(time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := <-result; err != nil {
		t.Fatalf("SetMode error = %v", err)
	}
	if e.Mode() != strategy.ModeClusteredDeferred {
		t.Errorf("Mode() = %s, want clustered deferred", e.Mode())
	}
	if !first.stopped {
		t.Error("previous strategy was not stopped")
	}
	if e.frame.strategy != (*built)[1] {
		t.Error("frame context does not hold the new strategy")
	}
}

func TestSetModeFailureKeepsActiveStrategy(t *testing.T) {
	e, built := newTestEngine(t)
	active := e.frame.strategy

	result := e.SetMode(strategy.ModeNaive)
	if err := e.applyRequests(time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := <-result; !errors.Is(err, errBuild) {
		t.Fatalf("SetMode error = %v, want %v", err, errBuild)
	}
	if e.frame.strategy != active || (*built)[0].stopped {
		t.Error("active strategy replaced or stopped after a failed switch")
	}
	if e.Mode() != strategy.ModeForwardPlus {
		t.Errorf("Mode() = %s, want forward+", e.Mode())
	}
}

func TestSetModeSameModeIsNoop(t *testing.T) {
	e, built := newTestEngine(t)
	result := e.SetMode(strategy.ModeForwardPlus)
	if err := e.applyRequests(time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := <-result; err != nil {
		t.Fatal(err)
	}
	if len(*built) != 1 {
		t.Errorf("built %d strategies, want 1", len(*built))
	}
}

func TestSetModeQueueFull(t *testing.T) {
	e, _ := newTestEngine(t)
	results := make([]<-chan error, 0, modeQueueSize+1)
	for range modeQueueSize + 1 {
		results = append(results, e.SetMode(strategy.ModeClusteredDeferred))
	}
	if err := <-results[modeQueueSize]; !errors.Is(err, ErrModeSwitchPending) {
		t.Fatalf("overflow request error = %v, want %v", err, ErrModeSwitchPending)
	}

	e.drainRequests()
	for i := range modeQueueSize {
		if err := <-results[i]; !errors.Is(err, ErrNotRunning) {
			t.Errorf("request %d error = %v, want %v", i, err, ErrNotRunning)
		}
	}
}

func TestSetNumLights(t *testing.T) {
	tests := []struct {
		name     string
		requests []int
		want     int
	}{
		{"single", []int{42}, 42},
		{"latest wins", []int{5, 60, 7}, 7},
		{"clamped high", []int{1000}, 100},
		{"clamped low", []int{-3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			var got int
			for _, n := range tt.requests {
				got = e.SetNumLights(n)
			}
			if got != tt.want {
				t.Errorf("SetNumLights returned %d, want %d", got, tt.want)
			}
			if e.lights.NumLights() != 10 {
				t.Fatal("light count applied before the frame boundary")
			}
			if err := e.applyRequests(time.Now()); err != nil {
				t.Fatal(err)
			}
			if e.lights.NumLights() != tt.want || e.lights.GPUNumLights() != tt.want {
				t.Errorf("lights = %d (gpu %d), want %d", e.lights.NumLights(), e.lights.GPUNumLights(), tt.want)
			}
		})
	}
}

func TestResizeRequest(t *testing.T) {
	e, built := newTestEngine(t)
	replaceLatest(e.resizeRequests, [2]int{0, 0})
	if err := e.applyRequests(time.Now()); err != nil {
		t.Fatal(err)
	}
	if (*built)[0].resized != [2]int{} {
		t.Error("zero-size resize reached the strategy")
	}
}

func TestRunBenchmark(t *testing.T) {
	e, _ := newTestEngine(t)
	results, err := e.RunBenchmark(
		benchmark.WithLightCounts(5, 50),
		benchmark.WithIdle(0),
		benchmark.WithMeasure(5*time.Millisecond),
		benchmark.WithSettle(0),
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.RunBenchmark(); !errors.Is(err, ErrBenchmarkRunning) {
		t.Fatalf("second RunBenchmark error = %v, want %v", err, ErrBenchmarkRunning)
	}

	now := time.Unix(0, 0)
	if err := e.applyRequests(now); err != nil {
		t.Fatal(err)
	}
	if e.lights.NumLights() != 5 {
		t.Fatalf("lights = %d at sweep start, want 5", e.lights.NumLights())
	}
	for i := 0; i < 1000 && e.benchActive.Load(); i++ {
		now = now.Add(time.Millisecond)
		e.tickBenchmark(now)
	}
	if e.benchActive.Load() {
		t.Fatal("benchmark did not finish")
	}

	got, ok := <-results
	if !ok {
		t.Fatal("results channel closed without results")
	}
	wantCounts := []int{5, 50, 100}
	if len(got) != len(wantCounts) {
		t.Fatalf("got %d results, want %d", len(got), len(wantCounts))
	}
	for i, r := range got {
		if r.Lights != wantCounts[i] {
			t.Errorf("result %d lights = %d, want %d", i, r.Lights, wantCounts[i])
		}
		if r.AvgFPS != 1000 {
			t.Errorf("result %d FPS = %v, want 1000", i, r.AvgFPS)
		}
	}
	if _, ok := <-results; ok {
		t.Error("results channel not closed")
	}
	if e.frame.benchmark != nil {
		t.Error("frame context still holds the finished benchmark")
	}
}

func TestReleaseClosesPendingBenchmark(t *testing.T) {
	e, _ := newTestEngine(t)
	results, err := e.RunBenchmark()
	if err != nil {
		t.Fatal(err)
	}
	e.drainRequests()
	if _, ok := <-results; ok {
		t.Error("pending benchmark delivered results")
	}
	if e.benchActive.Load() {
		t.Error("benchmark still marked active")
	}
}

func TestFrameDuration(t *testing.T) {
	tests := []struct {
		fps  float64
		want time.Duration
	}{
		{0, 0},
		{-5, 0},
		{60, time.Second / 60},
		{144, time.Duration(float64(time.Second) / 144)},
		{0.5, 2 * time.Second},
	}
	for _, tt := range tests {
		if got := frameDuration(tt.fps); got != tt.want {
			t.Errorf("frameDuration(%v) = %v, want %v", tt.fps, got, tt.want)
		}
	}
}

func TestNewEngineRequiresWindow(t *testing.T) {
	if _, err := NewEngine(); err == nil {
		t.Fatal("NewEngine without a window returned no error")
	}
}
