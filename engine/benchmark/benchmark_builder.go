package benchmark

import (
	"slices"
	"time"

	"golang.org/x/text/language"
)

// BenchmarkBuilderOption is a functional option for configuring a Benchmark.
type BenchmarkBuilderOption func(*benchmark)

// WithLightCounts replaces the light count sweep.
//
// Parameters:
//   - counts: the light counts to measure
//
// Returns:
//   - BenchmarkBuilderOption: a function that sets the sweep
func WithLightCounts(counts ...int) BenchmarkBuilderOption {
	return func(b *benchmark) {
		b.counts = slices.Clone(counts)
	}
}

// WithIdle sets the warm-up time before each measurement.
func WithIdle(d time.Duration) BenchmarkBuilderOption {
	return func(b *benchmark) {
		b.idle = max(d, 0)
	}
}

// WithMeasure sets the averaging window per light count.
func WithMeasure(d time.Duration) BenchmarkBuilderOption {
	return func(b *benchmark) {
		b.measure = max(d, 0)
	}
}

// WithSettle sets the pause between a measurement and the next count.
func WithSettle(d time.Duration) BenchmarkBuilderOption {
	return func(b *benchmark) {
		b.settle = max(d, 0)
	}
}

// WithLabel sets the heading of the report, usually the render mode.
func WithLabel(label string) BenchmarkBuilderOption {
	return func(b *benchmark) {
		b.label = label
	}
}

// WithLanguage sets the locale used to group digits in the status line and report.
//
// Parameters:
//   - tag: the report language
//
// Returns:
//   - BenchmarkBuilderOption: a function that sets the language
func WithLanguage(tag language.Tag) BenchmarkBuilderOption {
	return func(b *benchmark) {
		b.lang = tag
	}
}
