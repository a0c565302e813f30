package alerts

import (
	"strconv"
	"strings"

	"github.com/obsidianstack/pingwatch/internal/stats"
)

// evalCondition evaluates a rule condition string against m.
//
// Supported expressions (field operator value):
//
//	failure_rate > 5
//	avg_ping_time >= 150
//	max_ping_time > 500
//	min_ping_time > 50
//	avg_failed_pings > 2
//	consecutive_failures >= 3
//	avg_outage_duration > 10
//	state == critical
//
// Latency fields never fire while no successful sample exists.
// Returns (fires bool, triggering value float64); (false, 0) if the expression
// cannot be parsed or the field is unknown.
func evalCondition(cond string, m stats.Metrics) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "state" {
		if op == "==" {
			return stats.State(m) == rhs, 0
		}
		return false, 0
	}

	v, ok := numericField(field, m)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// validCondition reports whether cond parses into a known field and operator.
func validCondition(cond string) bool {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false
	}
	if parts[0] == "state" {
		return parts[1] == "=="
	}
	if _, ok := numericField(parts[0], stats.Metrics{}); !ok && !isLatencyField(parts[0]) {
		return false
	}
	if _, err := strconv.ParseFloat(parts[2], 64); err != nil {
		return false
	}
	switch parts[1] {
	case ">", ">=", "<", "<=", "==":
		return true
	default:
		return false
	}
}

func isLatencyField(field string) bool {
	switch field {
	case "avg_ping_time", "min_ping_time", "max_ping_time":
		return true
	default:
		return false
	}
}

// numericField maps a field name to its value in m. ok is false for unknown
// fields and for latency fields with no data.
func numericField(field string, m stats.Metrics) (float64, bool) {
	switch field {
	case "failure_rate":
		return m.FailureRatePct, true
	case "avg_failed_pings":
		return m.AvgFailuresPerWindow, true
	case "consecutive_failures":
		return float64(m.ConsecutiveFailures), true
	case "avg_outage_duration":
		return m.AvgOutagePings, true
	case "avg_ping_time":
		return deref(m.AvgLatencyMs)
	case "min_ping_time":
		return deref(m.MinLatencyMs)
	case "max_ping_time":
		return deref(m.MaxLatencyMs)
	default:
		return 0, false
	}
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
