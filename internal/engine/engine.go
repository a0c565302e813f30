package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/obsidianstack/pingwatch/internal/probe"
	"github.com/obsidianstack/pingwatch/pkg/types"
)

const (
	// DefaultMaxOutages bounds the outage-duration history.
	DefaultMaxOutages = 100

	// minOutageStreak is the shortest failure streak counted as an outage.
	// A single lost probe is noise, not an outage.
	minOutageStreak = 2
)

// Config holds the construction parameters of an Engine.
type Config struct {
	// Target is the probed address, reported in snapshots.
	Target string

	// MaxPoints is the ring capacity and, by convention, the accounting
	// window size.
	MaxPoints int

	// NumWindows is how many completed windows are retained.
	NumWindows int

	// Interval is the wait between the end of one probe and the start of the next.
	Interval time.Duration

	// ProbeTimeout, when positive, bounds each probe via its context.
	// Probers also enforce their own timeout.
	ProbeTimeout time.Duration

	// Prober performs one reachability check per poll iteration.
	Prober probe.Prober

	// MaxOutages bounds the outage history. Defaults to DefaultMaxOutages.
	MaxOutages int

	// Clock drives the poll loop wait and point timestamps. Defaults to the real clock.
	Clock clockwork.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Point is one ring entry: a probe outcome and the time it was recorded.
type Point struct {
	Sample types.Sample
	At     time.Time
}

// Snapshot is an independently owned copy of the engine state.
type Snapshot struct {
	Target     string
	MaxPoints  int
	NumWindows int
	SessionID  string
	TakenAt    time.Time

	// Points holds the ring contents, oldest first.
	Points []Point

	TotalPings  uint64
	FailedPings uint64

	// CompletedWindowFailures holds failed counts of completed windows, oldest first.
	CompletedWindowFailures []int
	CurrentWindowFailed     int
	CurrentWindowTotal      int

	ConsecutiveFailures int
	// OutageDurations holds lengths (in probes) of finished outages, oldest first.
	OutageDurations []int
}

// Engine is the reliability statistics engine for one target.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	target       string
	maxPoints    int
	numWindows   int
	interval     time.Duration
	probeTimeout time.Duration
	prober       probe.Prober
	clock        clockwork.Clock
	log          *slog.Logger

	mu           sync.Mutex
	points       *ring[Point]
	windowTotal  int
	windowFailed int
	completed    *ring[int]
	totalPings   uint64
	failedPings  uint64
	streak       int
	outages      *ring[int]
	sessionID    string

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New validates cfg and returns an idle Engine. Call Start to begin polling.
func New(cfg Config) (*Engine, error) {
	if cfg.Target == "" {
		return nil, fmt.Errorf("engine: target is required")
	}
	if cfg.MaxPoints < 1 {
		return nil, fmt.Errorf("engine: max points %d must be at least 1", cfg.MaxPoints)
	}
	if cfg.NumWindows < 1 {
		return nil, fmt.Errorf("engine: num windows %d must be at least 1", cfg.NumWindows)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("engine: interval must be positive")
	}
	if cfg.Prober == nil {
		return nil, fmt.Errorf("engine: prober is required")
	}
	if cfg.MaxOutages <= 0 {
		cfg.MaxOutages = DefaultMaxOutages
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		target:       cfg.Target,
		maxPoints:    cfg.MaxPoints,
		numWindows:   cfg.NumWindows,
		interval:     cfg.Interval,
		probeTimeout: cfg.ProbeTimeout,
		prober:       cfg.Prober,
		clock:        cfg.Clock,
		log:          cfg.Logger,
		points:       newRing[Point](cfg.MaxPoints),
		completed:    newRing[int](cfg.NumWindows),
		outages:      newRing[int](cfg.MaxOutages),
		sessionID:    uuid.NewString(),
	}, nil
}

// Target returns the probed address.
func (e *Engine) Target() string { return e.target }

// MaxPoints returns the ring capacity.
func (e *Engine) MaxPoints() int { return e.maxPoints }

// NumWindows returns the completed-window history capacity.
func (e *Engine) NumWindows() int { return e.numWindows }

// RecordOutcome folds one probe outcome into the ring, the window accounting,
// the lifetime counters and the outage tracker as a single atomic step.
func (e *Engine) RecordOutcome(s types.Sample) {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.points.push(Point{Sample: s, At: now})
	e.totalPings++
	e.windowTotal++

	if s.OK() {
		if e.streak >= minOutageStreak {
			e.outages.push(e.streak)
			e.log.Info("engine: outage ended", "target", e.target, "probes", e.streak)
		}
		e.streak = 0
	} else {
		e.failedPings++
		e.windowFailed++
		e.streak++
	}

	if e.windowTotal == e.maxPoints {
		e.completed.push(e.windowFailed)
		e.log.Debug("engine: window closed",
			"target", e.target, "failed", e.windowFailed, "size", e.maxPoints)
		e.windowTotal = 0
		e.windowFailed = 0
	}
}

// Snapshot returns a consistent copy of the engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		Target:                  e.target,
		MaxPoints:               e.maxPoints,
		NumWindows:              e.numWindows,
		SessionID:               e.sessionID,
		TakenAt:                 e.clock.Now(),
		Points:                  e.points.slice(),
		TotalPings:              e.totalPings,
		FailedPings:             e.failedPings,
		CompletedWindowFailures: e.completed.slice(),
		CurrentWindowFailed:     e.windowFailed,
		CurrentWindowTotal:      e.windowTotal,
		ConsecutiveFailures:     e.streak,
		OutageDurations:         e.outages.slice(),
	}
}

// Reset clears all samples, counters and history and starts a new session.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.points.clear()
	e.completed.clear()
	e.outages.clear()
	e.windowTotal = 0
	e.windowFailed = 0
	e.totalPings = 0
	e.failedPings = 0
	e.streak = 0
	e.sessionID = uuid.NewString()

	e.log.Info("engine: statistics reset", "target", e.target, "session", e.sessionID)
}
