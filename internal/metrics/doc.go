// Package metrics exposes pingwatch state to Prometheus.
//
// Collector reads an engine snapshot on every scrape and reports the lifetime
// counters, the derived statistics and the outage history. Instrument wraps a
// Prober to record per-probe duration and result. BuildInfo is set once at
// startup.
package metrics
