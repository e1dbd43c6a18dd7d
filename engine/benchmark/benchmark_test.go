package benchmark

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func TestSafeLightCounts(t *testing.T) {
	tests := []struct {
		name      string
		counts    []int
		maxLights int
		want      []int
	}{
		{"drops counts above max and adds max", []int{5, 10, 50}, 30, []int{5, 10, 30}},
		{"max already present", []int{5000, 5}, 5000, []int{5, 5000}},
		{"drops non-positive and duplicates", []int{-1, 0, 7, 7}, 10, []int{7, 10}},
		{"default sweep", DefaultLightCounts, 5000, DefaultLightCounts},
		{"empty", nil, 0, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeLightCounts(tt.counts, tt.maxLights); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SafeLightCounts() = %v, want %v", got, tt.want)
			}
		})
	}
}

// run drives b with one frame every step, starting at t0, until it finishes.
func run(t *testing.T, b Benchmark, step time.Duration) time.Duration {
	t.Helper()
	t0 := time.Unix(1000, 0)
	for i := 0; i < 100000; i++ {
		elapsed := time.Duration(i) * step
		if b.Frame(t0.Add(elapsed)) {
			return elapsed
		}
	}
	t.Fatal("benchmark did not finish")
	return 0
}

func TestBenchmarkSweep(t *testing.T) {
	var applied []int
	b := NewBenchmark(10, func(n int) { applied = append(applied, n) },
		WithLightCounts(5, 10),
		WithIdle(30*time.Millisecond),
		WithMeasure(100*time.Millisecond),
		WithSettle(20*time.Millisecond),
	)
	if b.Phase() != PhasePending || b.Status() != "Idle" {
		t.Fatalf("new benchmark phase %v status %q", b.Phase(), b.Status())
	}

	finishedAt := run(t, b, 10*time.Millisecond)
	if finishedAt != 300*time.Millisecond {
		t.Errorf("finished at %v, want 300ms", finishedAt)
	}
	if !reflect.DeepEqual(applied, []int{5, 10}) {
		t.Errorf("applied counts = %v, want [5 10]", applied)
	}

	results := b.Results()
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, r := range results {
		if r.Lights != applied[i] || r.Samples != 9 || math.Abs(r.AvgFPS-100) > 1e-6 {
			t.Errorf("result %d = %+v, want %d lights, 9 samples, 100 FPS", i, r, applied[i])
		}
	}
	if b.Phase() != PhaseDone || b.Status() != "Finished!" {
		t.Errorf("final phase %v status %q", b.Phase(), b.Status())
	}
}

func TestBenchmarkPhases(t *testing.T) {
	b := NewBenchmark(5, nil,
		WithLightCounts(5),
		WithIdle(time.Second),
		WithMeasure(time.Second),
		WithSettle(time.Second),
	)
	t0 := time.Unix(0, 0)
	steps := []struct {
		at     time.Duration
		phase  Phase
		status string
	}{
		{0, PhaseIdle, "Idling (5 lights)..."},
		{500 * time.Millisecond, PhaseIdle, "Idling (5 lights)..."},
		{time.Second, PhaseMeasure, "Calculating..."},
		{1500 * time.Millisecond, PhaseMeasure, "Calculating..."},
		{2 * time.Second, PhaseSettle, "5 lights: 2.00 FPS"},
		{3 * time.Second, PhaseDone, "Finished!"},
	}
	for _, s := range steps {
		b.Frame(t0.Add(s.at))
		if b.Phase() != s.phase || b.Status() != s.status {
			t.Errorf("at %v: phase %v status %q, want %v %q", s.at, b.Phase(), b.Status(), s.phase, s.status)
		}
	}
}

func TestBenchmarkReport(t *testing.T) {
	b := NewBenchmark(5000, nil,
		WithLightCounts(1000),
		WithIdle(0),
		WithMeasure(10*time.Millisecond),
		WithSettle(0),
		WithLabel("forward+"),
		WithLanguage(language.English),
	)
	if got := b.LightCounts(); !reflect.DeepEqual(got, []int{1000, 5000}) {
		t.Fatalf("LightCounts() = %v", got)
	}
	run(t, b, time.Millisecond)

	report := b.Report()
	for _, want := range []string{
		"--- Benchmark Begin (forward+) ---",
		"1,000 lights: 1,000.00 FPS",
		"5,000 lights: 1,000.00 FPS",
		"--- Benchmark End ---",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestBenchmarkWithoutSamples(t *testing.T) {
	b := NewBenchmark(1, nil, WithIdle(0), WithMeasure(0), WithSettle(0))
	run(t, b, time.Millisecond)

	results := b.Results()
	if len(results) != 1 || !math.IsNaN(results[0].AvgFPS) || results[0].Samples != 0 {
		t.Fatalf("results = %+v, want one unsampled result", results)
	}
	if !strings.Contains(b.Report(), "1 lights: N/A FPS") {
		t.Errorf("report = %q", b.Report())
	}
}
