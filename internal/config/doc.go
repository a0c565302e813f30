// Package config loads and watches the pingwatch configuration file (config.yaml).
//
// Top-level sections:
//   - target: the probed host (default 8.8.8.8)
//   - probe: method (icmp|exec), interval, timeout, privileged, size,
//     interface, binary, autostart
//   - stats: max_points (60), num_windows (10), max_outages (100)
//   - server: host, port (5000), api_url, auto_refresh_interval, cors_origin, auth
//   - log: format (json|text), level
//   - metrics: enabled, path (/metrics)
//   - alerts: interval, rules [], webhooks []
//
// Durations accept "1s"-style strings or a bare number of seconds.
//
// Load(path) applies defaults, unmarshals the file, overlays PINGWATCH_*
// environment variables, then validates. Load("") skips the file.
//
// Watch(ctx, path, onChange) uses fsnotify to reload on save. Only the refresh
// interval, api_url, cors_origin, log level and alerts apply live;
// RestartRequired reports the rest.
package config
