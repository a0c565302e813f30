// Package probe performs single reachability checks against the target.
//
// A Prober returns a types.Sample: a success carrying TTL and latency, or the
// failure sentinel. Probe failures (timeout, unreachable, unparseable reply)
// are data, not errors, so Probe has no error return.
//
// Implementations:
//   - ICMPProber (icmp.go) sends one echo request with pro-bing and reads the
//     reply TTL and RTT. Needs raw sockets when Privileged is set, otherwise
//     unprivileged datagram ICMP (net.ipv4.ping_group_range on Linux).
//   - ExecProber (exec.go) runs the system ping binary once and parses
//     "ttl=" and "time=" from its output.
//
// New(target, cfg, log) returns the implementation selected by cfg.Method.
package probe
