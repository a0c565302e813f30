// Package types defines the probe outcome shared by the prober, the engine and
// the API layer. A Sample is either a success carrying TTL and latency
// together, or a failure carrying neither.
package types
