package api

// ChartPoint is one ring entry in GET /api/data.
type ChartPoint struct {
	// Index is the position in the current ring, 0 = oldest retained.
	Index int `json:"index"`
	// TTL and PingTime are null for failed probes.
	TTL      *uint32  `json:"ttl"`
	PingTime *float64 `json:"pingTime"`
	// Timestamp is Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// DataResponse is the payload for GET /api/data and the WebSocket stream.
type DataResponse struct {
	ChartData           []ChartPoint `json:"chart_data"`
	FailureRate         float64      `json:"failure_rate"`
	AvgPingTime         *float64     `json:"avg_ping_time"`
	MinPingTime         *float64     `json:"min_ping_time"`
	MaxPingTime         *float64     `json:"max_ping_time"`
	AvgFailedPings      float64      `json:"avg_failed_pings"`
	TotalPings          uint64       `json:"total_pings"`
	FailedPings         uint64       `json:"failed_pings"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	OutageCount         int          `json:"outage_count"`
	AvgOutageDuration   float64      `json:"avg_outage_duration"`
	SessionID           string       `json:"session_id"`
}

// ConfigResponse is the payload for GET /api/config.
type ConfigResponse struct {
	MaxPoints  int    `json:"max_points"`
	NumWindows int    `json:"num_windows"`
	Target     string `json:"target"`
	// AutoRefreshInterval is in milliseconds.
	AutoRefreshInterval int64  `json:"auto_refresh_interval"`
	APIURL              string `json:"api_url"`
}

// ResetResponse is the payload for a successful POST /api/reset.
type ResetResponse struct {
	Message string `json:"message"`
}

// DiagnosticsResponse is the payload for GET /api/diagnostics.
type DiagnosticsResponse struct {
	Target string           `json:"target"`
	State  string           `json:"state"`
	Hints  []DiagnosticHint `json:"hints"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
