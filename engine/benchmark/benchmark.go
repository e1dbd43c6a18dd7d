// Package benchmark sweeps the light count of a running render loop and records the average
// frame rate at each count. It is driven by the render loop calling Frame once per presented
// frame, so it never sleeps and owns no goroutine.
package benchmark

import (
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLightCounts is the light count sweep. Counts above the light set maximum are dropped
// and the maximum itself is always measured.
var DefaultLightCounts = []int{5, 10, 50, 100, 200, 300, 400, 500, 600, 700, 800, 900, 1000, 1250, 1500, 2000, 2500, 3000, 3800, 5000}

const (
	// DefaultIdle is how long each light count runs before measuring starts.
	DefaultIdle = 3 * time.Second

	// DefaultMeasure is the averaging window per light count.
	DefaultMeasure = 20 * time.Second

	// DefaultSettle is the pause after each measurement before the next count is applied.
	DefaultSettle = 500 * time.Millisecond
)

// Phase is the state of a benchmark run.
type Phase int

const (
	// PhasePending is the state before the first Frame.
	PhasePending Phase = iota
	PhaseIdle
	PhaseMeasure
	PhaseSettle
	PhaseDone
)

// Result is the measurement for one light count. AvgFPS is NaN when no frame was sampled.
type Result struct {
	Lights  int
	AvgFPS  float64
	Samples int
}

type benchmark struct {
	mu *sync.Mutex

	counts    []int
	idle      time.Duration
	measure   time.Duration
	settle    time.Duration
	label     string
	lang      language.Tag
	setLights func(n int)

	phase      Phase
	index      int
	phaseStart time.Time
	lastFrame  time.Time
	samples    []float64
	results    []Result
}

// Benchmark is a light-count sweep. Frame must be called from the goroutine that owns the
// light set; the accessors are safe from any goroutine.
type Benchmark interface {
	// Frame advances the sweep. Call it once per presented frame.
	//
	// Parameters:
	//   - now: the presentation time of the frame
	//
	// Returns:
	//   - bool: true once every light count has been measured
	Frame(now time.Time) bool

	// Phase returns the current phase.
	Phase() Phase

	// Status returns a one-line human readable description of the current phase.
	Status() string

	// LightCounts returns the counts the sweep will measure, in order.
	LightCounts() []int

	// Results returns a copy of the measurements taken so far.
	Results() []Result

	// Report formats the results as a table headed by the benchmark label.
	Report() string
}

var _ Benchmark = &benchmark{}

// NewBenchmark creates a sweep over the configured light counts. setLights is called from Frame
// whenever the sweep moves to a new count.
//
// Parameters:
//   - maxLights: the light set maximum; it bounds and completes the sweep
//   - setLights: applies a light count
//   - options: a variadic list of BenchmarkBuilderOption functions
//
// Returns:
//   - Benchmark: the pending benchmark
func NewBenchmark(maxLights int, setLights func(n int), options ...BenchmarkBuilderOption) Benchmark {
	b := &benchmark{
		mu:        &sync.Mutex{},
		counts:    DefaultLightCounts,
		idle:      DefaultIdle,
		measure:   DefaultMeasure,
		settle:    DefaultSettle,
		lang:      language.English,
		setLights: setLights,
	}
	for _, opt := range options {
		opt(b)
	}
	b.counts = SafeLightCounts(b.counts, maxLights)
	return b
}

// SafeLightCounts drops counts outside [1, maxLights], sorts the remainder and makes sure
// maxLights itself is included.
//
// Parameters:
//   - counts: the requested counts
//   - maxLights: the light set maximum
//
// Returns:
//   - []int: the sorted, de-duplicated counts
func SafeLightCounts(counts []int, maxLights int) []int {
	out := make([]int, 0, len(counts)+1)
	for _, c := range counts {
		if c > 0 && c <= maxLights {
			out = append(out, c)
		}
	}
	if maxLights > 0 && !slices.Contains(out, maxLights) {
		out = append(out, maxLights)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (b *benchmark) Frame(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phase {
	case PhasePending:
		if len(b.counts) == 0 {
			b.phase = PhaseDone
			break
		}
		common.Logger().Info("benchmark begin", "label", b.label, "counts", len(b.counts))
		b.startCount(now)
	case PhaseIdle:
		if now.Sub(b.phaseStart) >= b.idle {
			b.phase = PhaseMeasure
			b.phaseStart = now
			b.samples = b.samples[:0]
		}
	case PhaseMeasure:
		if now.Sub(b.phaseStart) < b.measure {
			if dt := now.Sub(b.lastFrame); dt > 0 {
				b.samples = append(b.samples, 1/dt.Seconds())
			}
			break
		}
		r := Result{Lights: b.counts[b.index], AvgFPS: mean(b.samples), Samples: len(b.samples)}
		b.results = append(b.results, r)
		common.Logger().Info("benchmark result", "lights", r.Lights, "avg_fps", r.AvgFPS, "samples", r.Samples)
		b.phase = PhaseSettle
		b.phaseStart = now
	case PhaseSettle:
		if now.Sub(b.phaseStart) < b.settle {
			break
		}
		b.index++
		if b.index >= len(b.counts) {
			b.phase = PhaseDone
			common.Logger().Info("benchmark end", "label", b.label)
			break
		}
		b.startCount(now)
	}
	b.lastFrame = now
	return b.phase == PhaseDone
}

// startCount applies the current count and starts its idle period. Callers hold the lock.
func (b *benchmark) startCount(now time.Time) {
	if b.setLights != nil {
		b.setLights(b.counts[b.index])
	}
	b.phase = PhaseIdle
	b.phaseStart = now
}

func (b *benchmark) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

func (b *benchmark) Status() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := message.NewPrinter(b.lang)
	switch b.phase {
	case PhasePending:
		return "Idle"
	case PhaseIdle:
		return p.Sprintf("Idling (%d lights)...", b.counts[b.index])
	case PhaseMeasure:
		return "Calculating..."
	case PhaseSettle:
		return p.Sprintf("%d lights: %s FPS", b.results[len(b.results)-1].Lights, formatFPS(p, b.results[len(b.results)-1].AvgFPS))
	default:
		return "Finished!"
	}
}

func (b *benchmark) LightCounts() []int {
	return slices.Clone(b.counts)
}

func (b *benchmark) Results() []Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.results)
}

func (b *benchmark) Report() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := message.NewPrinter(b.lang)
	var sb strings.Builder
	if b.label != "" {
		sb.WriteString(p.Sprintf("--- Benchmark Begin (%s) ---\n", b.label))
	} else {
		sb.WriteString("--- Benchmark Begin ---\n")
	}
	for _, r := range b.results {
		sb.WriteString(p.Sprintf("%d lights: %s FPS\n", r.Lights, formatFPS(p, r.AvgFPS)))
	}
	sb.WriteString("--- Benchmark End ---\n")
	return sb.String()
}

func formatFPS(p *message.Printer, fps float64) string {
	if math.IsNaN(fps) {
		return "N/A"
	}
	return p.Sprintf("%.2f", fps)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
