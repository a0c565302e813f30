package types

// Sample is the outcome of one reachability probe.
//
// The zero value is a failure. A success always carries both a TTL and a
// latency; there is no way to build a Sample with only one of them.
type Sample struct {
	ok        bool
	ttl       uint32
	latencyMs float64
}

// Success returns a Sample for a probe that got a reply.
func Success(ttl uint32, latencyMs float64) Sample {
	return Sample{ok: true, ttl: ttl, latencyMs: latencyMs}
}

// Failure returns the failed-probe sentinel.
func Failure() Sample {
	return Sample{}
}

// OK reports whether the probe succeeded.
func (s Sample) OK() bool { return s.ok }

// TTL returns the reply TTL and true, or 0 and false for a failure.
func (s Sample) TTL() (uint32, bool) {
	if !s.ok {
		return 0, false
	}
	return s.ttl, true
}

// LatencyMs returns the round-trip time in milliseconds and true, or 0 and
// false for a failure.
func (s Sample) LatencyMs() (float64, bool) {
	if !s.ok {
		return 0, false
	}
	return s.latencyMs, true
}
