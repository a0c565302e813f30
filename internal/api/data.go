package api

import (
	"github.com/obsidianstack/pingwatch/internal/engine"
	"github.com/obsidianstack/pingwatch/internal/stats"
)

// BuildData shapes a snapshot into the /api/data payload.
func BuildData(snap engine.Snapshot, numWindows int) DataResponse {
	m := stats.Compute(snap, numWindows)

	chart := make([]ChartPoint, len(snap.Points))
	for i, p := range snap.Points {
		cp := ChartPoint{Index: i, Timestamp: p.At.UnixMilli()}
		if ttl, ok := p.Sample.TTL(); ok {
			cp.TTL = &ttl
		}
		if lat, ok := p.Sample.LatencyMs(); ok {
			cp.PingTime = &lat
		}
		chart[i] = cp
	}

	return DataResponse{
		ChartData:           chart,
		FailureRate:         m.FailureRatePct,
		AvgPingTime:         m.AvgLatencyMs,
		MinPingTime:         m.MinLatencyMs,
		MaxPingTime:         m.MaxLatencyMs,
		AvgFailedPings:      m.AvgFailuresPerWindow,
		TotalPings:          m.TotalPings,
		FailedPings:         m.FailedPings,
		ConsecutiveFailures: m.ConsecutiveFailures,
		OutageCount:         m.OutageCount,
		AvgOutageDuration:   m.AvgOutagePings,
		SessionID:           snap.SessionID,
	}
}

// defaultData is the /api/data body sent with a 500.
func defaultData() DataResponse {
	return DataResponse{ChartData: []ChartPoint{}}
}
