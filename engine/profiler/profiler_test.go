package profiler

import (
	"testing"
	"time"
)

func TestProfilerReportsEachInterval(t *testing.T) {
	now := time.Unix(0, 0)
	var reports []Stats
	p := NewProfiler(
		WithClock(func() time.Time { return now }),
		WithInterval(time.Second),
		WithMemStats(false),
		WithReportCallback(func(s Stats) { reports = append(reports, s) }),
	)

	tests := []struct {
		name       string
		frames     int
		frameTime  time.Duration
		wantReport bool
		wantFPS    float64
	}{
		{"below interval", 50, 10 * time.Millisecond, false, 0},
		{"reaches interval", 50, 10 * time.Millisecond, true, 100},
		{"slower frames", 20, 50 * time.Millisecond, true, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(reports)
			reported := false
			for range tt.frames {
				now = now.Add(tt.frameTime)
				reported = p.Tick() || reported
			}
			if reported != tt.wantReport || (len(reports) > before) != tt.wantReport {
				t.Fatalf("reported = %v (%d callbacks), want %v", reported, len(reports)-before, tt.wantReport)
			}
			if tt.wantReport && p.Last().FPS != tt.wantFPS {
				t.Errorf("FPS = %v, want %v", p.Last().FPS, tt.wantFPS)
			}
		})
	}

	if got := p.Last().AvgFrameTime; got != 50*time.Millisecond {
		t.Errorf("AvgFrameTime = %v, want 50ms", got)
	}
}
