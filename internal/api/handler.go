package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/obsidianstack/pingwatch/internal/alerts"
	"github.com/obsidianstack/pingwatch/internal/engine"
	"github.com/obsidianstack/pingwatch/internal/stats"
)

const resetMessage = "Statistics reset successfully"

// Engine is the engine surface the API reads and controls.
type Engine interface {
	Start()
	Snapshot() engine.Snapshot
	Reset()
	Target() string
	MaxPoints() int
	NumWindows() int
}

// Alerts is the alert engine surface the API exposes.
type Alerts interface {
	Active() []*alerts.Alert
	Reset()
}

// Settings are the client-facing values that may change on config reload.
type Settings struct {
	APIURL              string
	AutoRefreshInterval time.Duration
	// CORSOrigin is sent as Access-Control-Allow-Origin. Empty disables CORS.
	CORSOrigin string
}

// Options configures a Handler.
type Options struct {
	Engine Engine
	// Alerts is optional; /api/alerts returns an empty list without it.
	Alerts   Alerts
	Settings Settings
	// ResetAuth wraps POST /api/reset, typically with auth.APIKey.
	ResetAuth func(http.Handler) http.Handler
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Handler is the HTTP handler for all /api/* endpoints.
type Handler struct {
	eng      Engine
	alerts   Alerts
	log      *slog.Logger
	settings atomic.Pointer[Settings]
	mux      *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(opts Options) *Handler {
	h := &Handler{
		eng:    opts.Engine,
		alerts: opts.Alerts,
		log:    opts.Logger,
		mux:    http.NewServeMux(),
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	h.SetSettings(opts.Settings)

	var reset http.Handler = http.HandlerFunc(h.reset)
	if opts.ResetAuth != nil {
		reset = opts.ResetAuth(reset)
	}

	h.mux.HandleFunc("/api/data", h.data)
	h.mux.HandleFunc("/api/config", h.config)
	h.mux.Handle("/api/reset", reset)
	h.mux.HandleFunc("/api/alerts", h.alertList)
	h.mux.HandleFunc("/api/diagnostics", h.diagnostics)

	return h
}

// SetSettings replaces the client-facing settings.
func (h *Handler) SetSettings(s Settings) {
	h.settings.Store(&s)
}

// Settings returns the current client-facing settings.
func (h *Handler) Settings() Settings {
	return *h.settings.Load()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if origin := h.Settings().CORSOrigin; origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("api: handler panicked", "path", r.URL.Path, "panic", rec)
			jsonErr(w, http.StatusInternalServerError, "internal error")
		}
	}()

	h.eng.Start()
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// data returns GET /api/data. Faults yield a 500 with a default-valued body.
func (h *Handler) data(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp, err := h.buildData()
	if err != nil {
		h.log.Error("api: build data failed", "err", err)
		jsonResp(w, http.StatusInternalServerError, defaultData())
		return
	}
	jsonResp(w, http.StatusOK, resp)
}

func (h *Handler) buildData() (resp DataResponse, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return BuildData(h.eng.Snapshot(), h.eng.NumWindows()), nil
}

// config returns GET /api/config.
func (h *Handler) config(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s := h.Settings()
	jsonResp(w, http.StatusOK, ConfigResponse{
		MaxPoints:           h.eng.MaxPoints(),
		NumWindows:          h.eng.NumWindows(),
		Target:              h.eng.Target(),
		AutoRefreshInterval: s.AutoRefreshInterval.Milliseconds(),
		APIURL:              s.APIURL,
	})
}

// reset handles POST /api/reset.
func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := h.doReset(); err != nil {
		h.log.Error("api: reset failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.log.Info("api: statistics reset", "remote", r.RemoteAddr)
	jsonResp(w, http.StatusOK, ResetResponse{Message: resetMessage})
}

func (h *Handler) doReset() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("reset: %v", rec)
		}
	}()
	h.eng.Reset()
	if h.alerts != nil {
		h.alerts.Reset()
	}
	return nil
}

// alertList returns GET /api/alerts.
func (h *Handler) alertList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// diagnostics returns GET /api/diagnostics.
func (h *Handler) diagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap := h.eng.Snapshot()
	m := stats.Compute(snap, h.eng.NumWindows())
	jsonResp(w, http.StatusOK, DiagnosticsResponse{
		Target: snap.Target,
		State:  stats.State(m),
		Hints:  computeDiagnostics(m, snap.MaxPoints),
	})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
