package api

import (
	"fmt"

	"github.com/obsidianstack/pingwatch/internal/stats"
)

// Latency thresholds for diagnostic hints, in milliseconds.
const (
	latencyWarnMs     = 150.0
	latencyCriticalMs = 400.0
	spreadWarnMs      = 100.0
)

// DiagnosticHint is one human-readable insight about the probed target.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label.
	Title string `json:"title"`
	// Detail is the full explanation.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives hints from m. maxPoints is the window size, used
// to decide whether enough probes have been seen to judge the target.
func computeDiagnostics(m stats.Metrics, maxPoints int) []DiagnosticHint {
	var hints []DiagnosticHint

	// ── Warming up ───────────────────────────────────────────────────────────
	if m.TotalPings == 0 {
		return []DiagnosticHint{{
			Key:   "warming_up",
			Level: "info",
			Title: "Warming up",
			Detail: "No probe has completed yet. Statistics appear after the first " +
				"probe interval. No action needed.",
		}}
	}
	if m.TotalPings < uint64(maxPoints) {
		v := float64(m.TotalPings)
		hints = append(hints, DiagnosticHint{
			Key:   "warming_up",
			Level: "info",
			Title: "Filling first window",
			Detail: fmt.Sprintf(
				"%d of %d probes in the first window so far. Averages are noisy "+
					"until the first window completes.",
				m.TotalPings, maxPoints,
			),
			Value: &v,
		})
	}

	// ── Ongoing outage ───────────────────────────────────────────────────────
	if m.ConsecutiveFailures >= 2 {
		v := float64(m.ConsecutiveFailures)
		hints = append(hints, DiagnosticHint{
			Key:   "outage",
			Level: "critical",
			Title: "Target unreachable",
			Detail: fmt.Sprintf(
				"The last %d probes failed in a row. The target or the path to it is down. "+
					"Check local connectivity first, then whether the target drops ICMP.",
				m.ConsecutiveFailures,
			),
			Value: &v,
		})
	}

	// ── Failure rate ─────────────────────────────────────────────────────────
	if m.FailedPings > 0 {
		pct := m.FailureRatePct
		v := pct
		var level, title string
		switch {
		case pct >= stats.ThresholdCriticalPct:
			level, title = "critical", fmt.Sprintf("%.1f%% packet loss", pct)
		case pct >= stats.ThresholdDegradedPct:
			level, title = "warning", fmt.Sprintf("%.1f%% packet loss", pct)
		default:
			level, title = "info", fmt.Sprintf("%.2f%% minor loss", pct)
		}
		detail := fmt.Sprintf(
			"%d of %d probes failed since the last reset (%.2f%%), "+
				"averaging %.1f failures per window.",
			m.FailedPings, m.TotalPings, pct, m.AvgFailuresPerWindow,
		)
		if m.OutageCount > 0 {
			detail += fmt.Sprintf(" %d outages recorded, lasting %.1f probes on average.",
				m.OutageCount, m.AvgOutagePings)
		}
		hints = append(hints, DiagnosticHint{Key: "failure_rate", Level: level, Title: title, Detail: detail, Value: &v})
	}

	// ── Latency ──────────────────────────────────────────────────────────────
	if m.AvgLatencyMs != nil {
		avg := *m.AvgLatencyMs
		switch {
		case avg >= latencyCriticalMs:
			hints = append(hints, DiagnosticHint{
				Key:    "latency",
				Level:  "critical",
				Title:  fmt.Sprintf("%.0f ms average", avg),
				Detail: "Round-trip time is very high. Expect a saturated link or a congested route.",
				Value:  &avg,
			})
		case avg >= latencyWarnMs:
			hints = append(hints, DiagnosticHint{
				Key:    "latency",
				Level:  "warning",
				Title:  fmt.Sprintf("%.0f ms average", avg),
				Detail: "Round-trip time is elevated. Interactive traffic will feel sluggish.",
				Value:  &avg,
			})
		}
	}
	if m.MinLatencyMs != nil && m.MaxLatencyMs != nil {
		spread := *m.MaxLatencyMs - *m.MinLatencyMs
		if spread >= spreadWarnMs {
			hints = append(hints, DiagnosticHint{
				Key:   "latency_spread",
				Level: "warning",
				Title: "Unstable latency",
				Detail: fmt.Sprintf(
					"Latency in the current window ranges from %.1f ms to %.1f ms. "+
						"Large swings usually mean bufferbloat or a flapping route.",
					*m.MinLatencyMs, *m.MaxLatencyMs,
				),
				Value: &spread,
			})
		}
	}

	// ── All clear ────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "healthy",
			Level:  "ok",
			Title:  "All clear",
			Detail: "No packet loss and latency is steady.",
		})
	}

	return hints
}
