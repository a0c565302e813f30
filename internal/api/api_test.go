package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/obsidianstack/pingwatch/internal/alerts"
	"github.com/obsidianstack/pingwatch/internal/api"
	"github.com/obsidianstack/pingwatch/internal/auth"
	"github.com/obsidianstack/pingwatch/internal/config"
	"github.com/obsidianstack/pingwatch/internal/engine"
	"github.com/obsidianstack/pingwatch/internal/probe"
	"github.com/obsidianstack/pingwatch/internal/stats"
	"github.com/obsidianstack/pingwatch/pkg/types"
)

// --- test helpers -----------------------------------------------------------

// countingEngine wraps a real engine and counts Start calls.
type countingEngine struct {
	*engine.Engine
	starts atomic.Int32
}

func (c *countingEngine) Start() { c.starts.Add(1) }

// brokenEngine panics on every read.
type brokenEngine struct{ *countingEngine }

func (b *brokenEngine) Snapshot() engine.Snapshot { panic("state corrupted") }
func (b *brokenEngine) Reset()                    { panic("state corrupted") }

func newEngine(t *testing.T, maxPoints, numWindows int) *countingEngine {
	t.Helper()
	e, err := engine.New(engine.Config{
		Target:     "192.0.2.1",
		MaxPoints:  maxPoints,
		NumWindows: numWindows,
		Interval:   time.Second,
		Prober:     probe.Func(func(context.Context) types.Sample { return types.Failure() }),
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return &countingEngine{Engine: e}
}

func newHandler(eng api.Engine) *api.Handler {
	return api.New(api.Options{
		Engine: eng,
		Settings: api.Settings{
			APIURL:              "http://localhost:5000",
			AutoRefreshInterval: time.Second,
			CORSOrigin:          "*",
		},
	})
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, http.MethodGet, path)
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/data --------------------------------------------------------------

func TestData_Empty(t *testing.T) {
	h := newHandler(newEngine(t, 5, 2))
	rr := get(t, h, "/api/data")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)

	if chart, ok := resp["chart_data"].([]interface{}); !ok || len(chart) != 0 {
		t.Errorf("chart_data: got %v, want []", resp["chart_data"])
	}
	if resp["avg_ping_time"] != nil {
		t.Errorf("avg_ping_time: got %v, want null", resp["avg_ping_time"])
	}
	if resp["failure_rate"].(float64) != 0 {
		t.Errorf("failure_rate: got %v, want 0", resp["failure_rate"])
	}
	if resp["session_id"] == "" {
		t.Error("session_id: missing")
	}
}

func TestData_WindowExample(t *testing.T) {
	eng := newEngine(t, 5, 2)
	for i := 0; i < 5; i++ {
		eng.RecordOutcome(types.Success(117, 10+float64(i)))
	}
	for i := 0; i < 3; i++ {
		eng.RecordOutcome(types.Failure())
	}
	eng.RecordOutcome(types.Success(117, 20))
	eng.RecordOutcome(types.Success(117, 30))

	rr := get(t, newHandler(eng), "/api/data")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.DataResponse
	decode(t, rr, &resp)

	if resp.TotalPings != 10 || resp.FailedPings != 3 {
		t.Errorf("counters: got %d/%d, want 10/3", resp.TotalPings, resp.FailedPings)
	}
	if resp.FailureRate != 30 {
		t.Errorf("failure_rate: got %v, want 30", resp.FailureRate)
	}
	if resp.AvgFailedPings != 1.5 {
		t.Errorf("avg_failed_pings: got %v, want 1.5", resp.AvgFailedPings)
	}
	if len(resp.ChartData) != 5 {
		t.Fatalf("chart_data: got %d points, want 5", len(resp.ChartData))
	}
	// Ring holds fail, fail, fail, 20, 30.
	for i, p := range resp.ChartData {
		if p.Index != i {
			t.Errorf("chart_data[%d].index = %d", i, p.Index)
		}
		if p.Timestamp == 0 {
			t.Errorf("chart_data[%d].timestamp is zero", i)
		}
	}
	if resp.ChartData[0].TTL != nil || resp.ChartData[0].PingTime != nil {
		t.Error("failed probe should have null ttl and pingTime")
	}
	if resp.ChartData[4].PingTime == nil || *resp.ChartData[4].PingTime != 30 {
		t.Errorf("chart_data[4].pingTime: got %v, want 30", resp.ChartData[4].PingTime)
	}
	if resp.AvgPingTime == nil || *resp.AvgPingTime != 25 {
		t.Errorf("avg_ping_time: got %v, want 25", resp.AvgPingTime)
	}
	if resp.MinPingTime == nil || *resp.MinPingTime != 20 || resp.MaxPingTime == nil || *resp.MaxPingTime != 30 {
		t.Errorf("min/max: got %v/%v, want 20/30", resp.MinPingTime, resp.MaxPingTime)
	}
	if resp.OutageCount != 1 || resp.AvgOutageDuration != 3 {
		t.Errorf("outages: got %d avg %v, want 1 avg 3", resp.OutageCount, resp.AvgOutageDuration)
	}
}

func TestData_FaultReturnsDefaultShape(t *testing.T) {
	eng := &brokenEngine{countingEngine: newEngine(t, 5, 2)}
	rr := get(t, newHandler(eng), "/api/data")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)
	for _, key := range []string{"chart_data", "failure_rate", "avg_ping_time", "min_ping_time",
		"max_ping_time", "avg_failed_pings", "total_pings"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("default body missing %q", key)
		}
	}
	if resp["total_pings"].(float64) != 0 {
		t.Errorf("total_pings: got %v, want 0", resp["total_pings"])
	}
}

func TestData_MethodNotAllowed(t *testing.T) {
	rr := do(t, newHandler(newEngine(t, 5, 2)), http.MethodPost, "/api/data")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- lazy start -------------------------------------------------------------

func TestEveryRequestStartsEngine(t *testing.T) {
	eng := newEngine(t, 5, 2)
	h := newHandler(eng)
	get(t, h, "/api/config")
	get(t, h, "/api/data")
	do(t, h, http.MethodPost, "/api/reset")
	if n := eng.starts.Load(); n != 3 {
		t.Errorf("Start calls: got %d, want 3", n)
	}
}

func TestLazyStart_RealEngineIdempotent(t *testing.T) {
	e, err := engine.New(engine.Config{
		Target:     "192.0.2.1",
		MaxPoints:  5,
		NumWindows: 2,
		Interval:   time.Hour,
		Prober:     probe.Func(func(context.Context) types.Sample { return types.Success(64, 1) }),
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	defer e.Stop()

	h := newHandler(e)
	get(t, h, "/api/data")
	get(t, h, "/api/data")
	if !e.IsRunning() {
		t.Fatal("engine not running after first request")
	}
}

// --- /api/config ------------------------------------------------------------

func TestConfig(t *testing.T) {
	h := newHandler(newEngine(t, 60, 10))
	rr := get(t, h, "/api/config")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.ConfigResponse
	decode(t, rr, &resp)
	want := api.ConfigResponse{
		MaxPoints:           60,
		NumWindows:          10,
		Target:              "192.0.2.1",
		AutoRefreshInterval: 1000,
		APIURL:              "http://localhost:5000",
	}
	if resp != want {
		t.Errorf("config: got %+v, want %+v", resp, want)
	}
}

func TestConfig_SettingsReload(t *testing.T) {
	h := newHandler(newEngine(t, 60, 10))
	h.SetSettings(api.Settings{APIURL: "http://pw:9000", AutoRefreshInterval: 2500 * time.Millisecond})

	var resp api.ConfigResponse
	decode(t, get(t, h, "/api/config"), &resp)
	if resp.APIURL != "http://pw:9000" || resp.AutoRefreshInterval != 2500 {
		t.Errorf("config after reload: got %+v", resp)
	}
}

// --- /api/reset -------------------------------------------------------------

func TestReset(t *testing.T) {
	eng := newEngine(t, 5, 2)
	eng.RecordOutcome(types.Failure())
	eng.RecordOutcome(types.Success(117, 5))
	before := eng.Snapshot().SessionID

	rr := do(t, newHandler(eng), http.MethodPost, "/api/reset")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.ResetResponse
	decode(t, rr, &resp)
	if resp.Message != "Statistics reset successfully" {
		t.Errorf("message: got %q", resp.Message)
	}

	snap := eng.Snapshot()
	if snap.TotalPings != 0 || len(snap.Points) != 0 {
		t.Errorf("engine not reset: %+v", snap)
	}
	if snap.SessionID == before {
		t.Error("session id not rotated")
	}
}

func TestReset_GetNotAllowed(t *testing.T) {
	rr := get(t, newHandler(newEngine(t, 5, 2)), "/api/reset")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

func TestReset_Fault(t *testing.T) {
	eng := &brokenEngine{countingEngine: newEngine(t, 5, 2)}
	rr := do(t, newHandler(eng), http.MethodPost, "/api/reset")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	var resp map[string]string
	decode(t, rr, &resp)
	if resp["error"] == "" {
		t.Error("error: missing")
	}
}

func TestReset_RequiresAPIKey(t *testing.T) {
	h := api.New(api.Options{
		Engine:    newEngine(t, 5, 2),
		ResetAuth: auth.APIKey("apikey", "x-api-key", "secret"),
	})

	if rr := do(t, h, http.MethodPost, "/api/reset"); rr.Code != http.StatusUnauthorized {
		t.Errorf("without key: got %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/reset", nil)
	req.Header.Set("x-api-key", "secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("with key: got %d, want 200", rr.Code)
	}

	// Reads stay open.
	if rr := get(t, h, "/api/data"); rr.Code != http.StatusOK {
		t.Errorf("data: got %d, want 200", rr.Code)
	}
}

// --- CORS -------------------------------------------------------------------

func TestCORS(t *testing.T) {
	h := newHandler(newEngine(t, 5, 2))
	rr := do(t, h, http.MethodOptions, "/api/reset")
	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight status: got %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin: got %q, want *", got)
	}

	h.SetSettings(api.Settings{AutoRefreshInterval: time.Second})
	rr = get(t, h, "/api/config")
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin with CORS disabled: got %q", got)
	}
}

// --- /api/alerts ------------------------------------------------------------

func TestAlerts_NoEngine(t *testing.T) {
	rr := get(t, newHandler(newEngine(t, 5, 2)), "/api/alerts")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("body: got %s, want []", body)
	}
}

func TestAlerts_FiringAndResetClears(t *testing.T) {
	al := alerts.New(config.AlertsConfig{
		Rules: []config.AlertRule{{Name: "lossy", Condition: "failure_rate > 5", Severity: "critical"}},
	}, nil)
	al.Evaluate("192.0.2.1", stats.Metrics{FailureRatePct: 50, TotalPings: 2})

	h := api.New(api.Options{Engine: newEngine(t, 5, 2), Alerts: al})

	var list []alerts.Alert
	decode(t, get(t, h, "/api/alerts"), &list)
	if len(list) != 1 || list[0].RuleName != "lossy" || list[0].State != alerts.StateFiring {
		t.Fatalf("alerts: got %+v", list)
	}

	do(t, h, http.MethodPost, "/api/reset")
	list = nil
	decode(t, get(t, h, "/api/alerts"), &list)
	if len(list) != 0 {
		t.Errorf("alerts after reset: got %d, want 0", len(list))
	}
}

// --- /api/diagnostics -------------------------------------------------------

func hintKeys(resp api.DiagnosticsResponse) map[string]string {
	out := make(map[string]string, len(resp.Hints))
	for _, h := range resp.Hints {
		out[h.Key] = h.Level
	}
	return out
}

func TestDiagnostics_WarmingUp(t *testing.T) {
	var resp api.DiagnosticsResponse
	decode(t, get(t, newHandler(newEngine(t, 5, 2)), "/api/diagnostics"), &resp)
	if resp.State != stats.StateUnknown {
		t.Errorf("state: got %q, want unknown", resp.State)
	}
	if _, ok := hintKeys(resp)["warming_up"]; !ok {
		t.Errorf("hints: got %+v, want warming_up", resp.Hints)
	}
}

func TestDiagnostics_Outage(t *testing.T) {
	eng := newEngine(t, 5, 2)
	for i := 0; i < 5; i++ {
		eng.RecordOutcome(types.Success(117, 10))
	}
	eng.RecordOutcome(types.Failure())
	eng.RecordOutcome(types.Failure())
	eng.RecordOutcome(types.Failure())

	var resp api.DiagnosticsResponse
	decode(t, get(t, newHandler(eng), "/api/diagnostics"), &resp)
	if resp.State != stats.StateCritical {
		t.Errorf("state: got %q, want critical", resp.State)
	}
	keys := hintKeys(resp)
	if keys["outage"] != "critical" {
		t.Errorf("outage hint: got %q, want critical", keys["outage"])
	}
	if keys["failure_rate"] != "critical" {
		t.Errorf("failure_rate hint: got %q, want critical", keys["failure_rate"])
	}
}

func TestDiagnostics_Healthy(t *testing.T) {
	eng := newEngine(t, 5, 2)
	for i := 0; i < 10; i++ {
		eng.RecordOutcome(types.Success(117, 12))
	}
	var resp api.DiagnosticsResponse
	decode(t, get(t, newHandler(eng), "/api/diagnostics"), &resp)
	if resp.State != stats.StateHealthy {
		t.Errorf("state: got %q, want healthy", resp.State)
	}
	if len(resp.Hints) != 1 || resp.Hints[0].Key != "healthy" {
		t.Errorf("hints: got %+v, want only healthy", resp.Hints)
	}
}

func TestDiagnostics_Latency(t *testing.T) {
	eng := newEngine(t, 4, 2)
	for _, ms := range []float64{180, 190, 60, 200} {
		eng.RecordOutcome(types.Success(117, ms))
	}
	var resp api.DiagnosticsResponse
	decode(t, get(t, newHandler(eng), "/api/diagnostics"), &resp)
	keys := hintKeys(resp)
	if keys["latency"] != "warning" {
		t.Errorf("latency hint: got %q, want warning", keys["latency"])
	}
	if keys["latency_spread"] != "warning" {
		t.Errorf("latency_spread hint: got %q, want warning", keys["latency_spread"])
	}
}

func TestUnknownRoute(t *testing.T) {
	rr := get(t, newHandler(newEngine(t, 5, 2)), "/api/nope")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}
