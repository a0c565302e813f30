package stats

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/obsidianstack/pingwatch/internal/engine"
	"github.com/obsidianstack/pingwatch/pkg/types"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func points(samples ...types.Sample) []engine.Point {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]engine.Point, len(samples))
	for i, s := range samples {
		out[i] = engine.Point{Sample: s, At: base.Add(time.Duration(i) * time.Second)}
	}
	return out
}

func TestCompute_Empty(t *testing.T) {
	m := Compute(engine.Snapshot{}, 10)
	if m.FailureRatePct != 0 {
		t.Errorf("FailureRatePct = %v, want 0", m.FailureRatePct)
	}
	if m.AvgLatencyMs != nil || m.MinLatencyMs != nil || m.MaxLatencyMs != nil {
		t.Error("latency aggregates should be absent on an empty snapshot")
	}
	if m.AvgFailuresPerWindow != 0 {
		t.Errorf("AvgFailuresPerWindow = %v, want 0", m.AvgFailuresPerWindow)
	}
	if got := State(m); got != StateUnknown {
		t.Errorf("State = %q, want %q", got, StateUnknown)
	}
}

func TestCompute_SingleFailure(t *testing.T) {
	m := Compute(engine.Snapshot{
		Points:              points(types.Failure()),
		TotalPings:          1,
		FailedPings:         1,
		CurrentWindowFailed: 1,
		CurrentWindowTotal:  1,
		ConsecutiveFailures: 1,
	}, 10)

	if m.FailureRatePct != 100 {
		t.Errorf("FailureRatePct = %v, want 100", m.FailureRatePct)
	}
	if m.AvgLatencyMs != nil || m.MinLatencyMs != nil || m.MaxLatencyMs != nil {
		t.Error("latency aggregates should be absent, not zero")
	}
	if m.AvgFailuresPerWindow != 1 {
		t.Errorf("AvgFailuresPerWindow = %v, want 1", m.AvgFailuresPerWindow)
	}
}

func TestCompute_LatencyOverSuccessesOnly(t *testing.T) {
	m := Compute(engine.Snapshot{
		Points: points(
			types.Success(117, 10),
			types.Failure(),
			types.Success(117, 30),
			types.Success(117, 20),
		),
		TotalPings:  4,
		FailedPings: 1,
	}, 10)

	if m.SuccessfulSamples != 3 {
		t.Errorf("SuccessfulSamples = %d, want 3", m.SuccessfulSamples)
	}
	if m.AvgLatencyMs == nil || !almostEqual(*m.AvgLatencyMs, 20, 1e-9) {
		t.Errorf("AvgLatencyMs = %v, want 20", m.AvgLatencyMs)
	}
	if m.MinLatencyMs == nil || *m.MinLatencyMs != 10 {
		t.Errorf("MinLatencyMs = %v, want 10", m.MinLatencyMs)
	}
	if m.MaxLatencyMs == nil || *m.MaxLatencyMs != 30 {
		t.Errorf("MaxLatencyMs = %v, want 30", m.MaxLatencyMs)
	}
	if !almostEqual(m.FailureRatePct, 25, 1e-9) {
		t.Errorf("FailureRatePct = %v, want 25", m.FailureRatePct)
	}
}

// The rate comes from lifetime counters, not from what the ring still holds.
func TestCompute_FailureRateUsesLifetimeCounters(t *testing.T) {
	m := Compute(engine.Snapshot{
		Points:      points(types.Failure(), types.Success(117, 5)),
		TotalPings:  3,
		FailedPings: 2,
	}, 2)
	if !almostEqual(m.FailureRatePct, 66.667, 1e-3) {
		t.Errorf("FailureRatePct = %v, want ~66.7", m.FailureRatePct)
	}
}

func TestCompute_AvgFailuresPerWindow(t *testing.T) {
	tests := []struct {
		name       string
		completed  []int
		curFailed  int
		curTotal   int
		numWindows int
		want       float64
	}{
		{"two completed windows", []int{0, 3}, 0, 0, 2, 1.5},
		{"partial window counts as one entry", []int{0, 3}, 1, 1, 3, 4.0 / 3},
		{"empty partial window is skipped", []int{2, 4}, 0, 0, 5, 3},
		{"only the last numWindows entries", []int{10, 0, 3}, 3, 2, 2, 3},
		{"only a partial window", nil, 2, 4, 10, 2},
		{"numWindows zero uses everything", []int{1, 2, 3}, 0, 0, 0, 2},
		{"no windows", nil, 0, 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Compute(engine.Snapshot{
				CompletedWindowFailures: tt.completed,
				CurrentWindowFailed:     tt.curFailed,
				CurrentWindowTotal:      tt.curTotal,
			}, tt.numWindows)
			if !almostEqual(m.AvgFailuresPerWindow, tt.want, 1e-9) {
				t.Errorf("AvgFailuresPerWindow = %v, want %v", m.AvgFailuresPerWindow, tt.want)
			}
		})
	}
}

func TestCompute_FromEngine(t *testing.T) {
	// maxPoints=5, numWindows=2: 5 ok, 3 fail, 2 ok.
	e, err := engine.New(engine.Config{
		Target:     "192.0.2.1",
		MaxPoints:  5,
		NumWindows: 2,
		Interval:   time.Second,
		Prober:     nopProber{},
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	for i := 0; i < 5; i++ {
		e.RecordOutcome(types.Success(117, 10))
	}
	for i := 0; i < 3; i++ {
		e.RecordOutcome(types.Failure())
	}
	e.RecordOutcome(types.Success(117, 10))
	e.RecordOutcome(types.Success(117, 10))

	m := Compute(e.Snapshot(), e.NumWindows())
	if m.TotalPings != 10 || m.FailedPings != 3 {
		t.Errorf("counters = %d/%d, want 10/3", m.TotalPings, m.FailedPings)
	}
	if m.AvgFailuresPerWindow != 1.5 {
		t.Errorf("AvgFailuresPerWindow = %v, want 1.5", m.AvgFailuresPerWindow)
	}
	if m.OutageCount != 1 || m.AvgOutagePings != 3 {
		t.Errorf("outages = %d avg %v, want 1 avg 3", m.OutageCount, m.AvgOutagePings)
	}
}

func TestCompute_MalformedCountersDoNotPanic(t *testing.T) {
	m := Compute(engine.Snapshot{TotalPings: 2, FailedPings: 5}, 10)
	if m.FailureRatePct != 100 {
		t.Errorf("FailureRatePct = %v, want 100 (clamped)", m.FailureRatePct)
	}
}

func TestCompute_Outages(t *testing.T) {
	m := Compute(engine.Snapshot{OutageDurations: []int{2, 3, 7}, ConsecutiveFailures: 1}, 10)
	if m.OutageCount != 3 {
		t.Errorf("OutageCount = %d, want 3", m.OutageCount)
	}
	if !almostEqual(m.AvgOutagePings, 4, 1e-9) {
		t.Errorf("AvgOutagePings = %v, want 4", m.AvgOutagePings)
	}
	if m.ConsecutiveFailures != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", m.ConsecutiveFailures)
	}
}

func TestState(t *testing.T) {
	tests := []struct {
		name string
		in   Metrics
		want string
	}{
		{"no data", Metrics{}, StateUnknown},
		{"clean", Metrics{TotalPings: 100}, StateHealthy},
		{"degraded rate", Metrics{TotalPings: 100, FailedPings: 2, FailureRatePct: 2}, StateDegraded},
		{"critical rate", Metrics{TotalPings: 100, FailedPings: 10, FailureRatePct: 10}, StateCritical},
		{"ongoing outage", Metrics{TotalPings: 1000, FailedPings: 2, FailureRatePct: 0.2, ConsecutiveFailures: 2}, StateCritical},
		{"single lost probe", Metrics{TotalPings: 1000, FailedPings: 1, FailureRatePct: 0.1, ConsecutiveFailures: 1}, StateHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := State(tt.in); got != tt.want {
				t.Errorf("State = %q, want %q", got, tt.want)
			}
		})
	}
}

type nopProber struct{}

func (nopProber) Probe(context.Context) types.Sample { return types.Failure() }
