// Package stats derives reliability metrics from an engine snapshot.
//
// Compute(snapshot, numWindows) is pure and never fails:
//   - FailureRatePct uses the lifetime counters, not the ring.
//   - Latency average and extrema cover successful samples currently in the
//     ring; they are nil when the ring holds no success.
//   - AvgFailuresPerWindow averages the last numWindows entries of the
//     completed-window history plus the current window when it has at least
//     one probe. A partial window weighs the same as a full one.
//   - Outage figures summarise the recorded outage history.
//
// State maps Metrics to a health state: Healthy, Degraded, Critical, Unknown.
package stats
