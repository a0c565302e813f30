package stats

import (
	"github.com/obsidianstack/pingwatch/internal/engine"
)

// State constants returned by State.
const (
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateCritical = "critical"
	StateUnknown  = "unknown"
)

// Failure-rate thresholds that map Metrics to a health state.
const (
	ThresholdDegradedPct = 1.0
	ThresholdCriticalPct = 10.0
)

// Metrics is the aggregate view of one snapshot.
type Metrics struct {
	// FailureRatePct is 100 * failed / total over the lifetime counters.
	FailureRatePct float64

	// Latency aggregates over successful ring samples. Nil when there are none.
	AvgLatencyMs *float64
	MinLatencyMs *float64
	MaxLatencyMs *float64

	// AvgFailuresPerWindow is the mean failed count per accounting window.
	AvgFailuresPerWindow float64

	TotalPings  uint64
	FailedPings uint64

	// ConsecutiveFailures is the current failure streak.
	ConsecutiveFailures int

	// OutageCount is the number of recorded outages.
	OutageCount int

	// AvgOutagePings is the mean outage length in probes, 0 when none.
	AvgOutagePings float64

	// SuccessfulSamples is the number of successes in the ring.
	SuccessfulSamples int
}

// Compute derives Metrics from snap. numWindows <= 0 averages every window
// in the snapshot.
func Compute(snap engine.Snapshot, numWindows int) Metrics {
	m := Metrics{
		TotalPings:          snap.TotalPings,
		FailedPings:         snap.FailedPings,
		ConsecutiveFailures: snap.ConsecutiveFailures,
		OutageCount:         len(snap.OutageDurations),
	}

	if snap.TotalPings > 0 {
		failed := snap.FailedPings
		if failed > snap.TotalPings {
			failed = snap.TotalPings
		}
		m.FailureRatePct = 100.0 * float64(failed) / float64(snap.TotalPings)
	}

	var sum, lo, hi float64
	for _, p := range snap.Points {
		lat, ok := p.Sample.LatencyMs()
		if !ok {
			continue
		}
		if m.SuccessfulSamples == 0 || lat < lo {
			lo = lat
		}
		if m.SuccessfulSamples == 0 || lat > hi {
			hi = lat
		}
		sum += lat
		m.SuccessfulSamples++
	}
	if m.SuccessfulSamples > 0 {
		avg := sum / float64(m.SuccessfulSamples)
		m.AvgLatencyMs = &avg
		m.MinLatencyMs = &lo
		m.MaxLatencyMs = &hi
	}

	m.AvgFailuresPerWindow = avgFailuresPerWindow(snap, numWindows)
	m.AvgOutagePings = mean(snap.OutageDurations)

	return m
}

// avgFailuresPerWindow averages the most recent numWindows window failure
// counts, counting a non-empty current window as one entry.
func avgFailuresPerWindow(snap engine.Snapshot, numWindows int) float64 {
	seq := make([]int, 0, len(snap.CompletedWindowFailures)+1)
	seq = append(seq, snap.CompletedWindowFailures...)
	if snap.CurrentWindowTotal > 0 {
		seq = append(seq, snap.CurrentWindowFailed)
	}
	if numWindows > 0 && len(seq) > numWindows {
		seq = seq[len(seq)-numWindows:]
	}
	return mean(seq)
}

func mean(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum int
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

// State returns the health state for m. A probe stream with an ongoing
// outage is critical regardless of the lifetime rate.
func State(m Metrics) string {
	switch {
	case m.TotalPings == 0:
		return StateUnknown
	case m.ConsecutiveFailures >= 2 || m.FailureRatePct >= ThresholdCriticalPct:
		return StateCritical
	case m.FailureRatePct >= ThresholdDegradedPct:
		return StateDegraded
	default:
		return StateHealthy
	}
}
