// Package engine implements the reliability engine: the only stateful part of
// pingwatch.
//
// An Engine owns three independent pieces of state, all guarded by one mutex:
//
//   - a ring of the most recent MaxPoints probe outcomes (sliding view, one
//     eviction per insert) used for latency and TTL statistics;
//   - window accounting: a counter pair for the current window plus a bounded
//     history of failed-probe counts for the last NumWindows completed
//     windows. A window closes after exactly MaxPoints probes counted since
//     construction or the last Reset, independent of ring eviction;
//   - lifetime counters and outage tracking since the last Reset.
//
// RecordOutcome, Snapshot and Reset are serialised. Snapshot returns a copy
// that never aliases engine memory.
//
// Start launches the poll loop (probe, record, wait Interval on the injected
// clock). Stop cancels the loop and waits for it to exit; an in-flight probe
// is allowed to finish. Both are idempotent.
package engine
