package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/obsidianstack/pingwatch/internal/config"
	"github.com/obsidianstack/pingwatch/internal/engine"
	"github.com/obsidianstack/pingwatch/internal/stats"
)

const (
	defaultCooldown = config.DefaultAlertCooldown
	maxHistoryLen   = 200
	recentWindow    = time.Hour
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Target     string     `json:"target"`
	Severity   string     `json:"severity"`
	Condition  string     `json:"condition"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

// Source is the engine view the alert loop needs.
type Source interface {
	Target() string
	NumWindows() int
	Snapshot() engine.Snapshot
}

// Engine evaluates alert rules against reliability metrics and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	clock  clockwork.Clock
	client *http.Client

	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: rule name
	lastFire map[string]time.Time // last fire time per rule, for cooldown
	history  []*Alert             // recently resolved alerts
}

// New creates an Engine from the alert configuration. A nil clock uses the
// real clock. An Engine with no rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	e := &Engine{
		clock:    clock,
		client:   &http.Client{Timeout: 10 * time.Second},
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
	}
	e.Update(cfg)
	return e
}

// Update replaces the rules and webhooks. Alerts of removed rules are resolved
// silently; cooldown state of kept rules survives.
func (e *Engine) Update(cfg config.AlertsConfig) {
	rules := make([]config.AlertRule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		if !validCondition(r.Condition) {
			slog.Warn("alerts: skipping rule with invalid condition",
				"rule", r.Name, "condition", r.Condition)
			continue
		}
		rules = append(rules, r)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = rules
	e.webhooks = append([]config.WebhookConfig(nil), cfg.Webhooks...)

	keep := make(map[string]bool, len(rules))
	for _, r := range rules {
		keep[r.Name] = true
	}
	for name := range e.active {
		if !keep[name] {
			delete(e.active, name)
			delete(e.lastFire, name)
		}
	}
}

// Run evaluates the rules against src every interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, src Source, interval time.Duration) {
	ticker := e.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.Evaluate(src.Target(), stats.Compute(src.Snapshot(), src.NumWindows()))
		}
	}
}

// Evaluate tests all configured rules against m.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(target string, m stats.Metrics) {
	e.mu.Lock()
	rules := e.rules
	e.mu.Unlock()

	now := e.clock.Now()
	for _, rule := range rules {
		fires, value := evalCondition(rule.Condition, m)

		e.mu.Lock()
		if fires {
			if _, firing := e.active[rule.Name]; firing {
				e.mu.Unlock()
				continue
			}
			cooldown := rule.Cooldown.Duration()
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if last, ok := e.lastFire[rule.Name]; ok && now.Sub(last) <= cooldown {
				e.mu.Unlock()
				continue
			}

			sev := rule.Severity
			if sev == "" {
				sev = "warning"
			}
			a := &Alert{
				ID:        uuid.NewString(),
				RuleName:  rule.Name,
				Target:    target,
				Severity:  sev,
				Condition: rule.Condition,
				Value:     value,
				Message: fmt.Sprintf("[%s] %s fired on %s: %s (value %.2f)",
					sev, rule.Name, target, rule.Condition, value),
				FiredAt: now,
				State:   StateFiring,
			}
			e.active[rule.Name] = a
			e.lastFire[rule.Name] = now
			alertCopy := *a
			webhooks := e.webhooks
			e.mu.Unlock()

			slog.Warn("alert fired",
				"rule", rule.Name,
				"target", target,
				"value", value,
				"severity", sev,
			)
			go e.deliver(webhooks, &alertCopy)
			continue
		}

		a, firing := e.active[rule.Name]
		if !firing {
			e.mu.Unlock()
			continue
		}
		resolved := now
		a.State = StateResolved
		a.ResolvedAt = &resolved
		delete(e.active, rule.Name)

		e.history = append(e.history, a)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}
		alertCopy := *a
		webhooks := e.webhooks
		e.mu.Unlock()

		slog.Info("alert resolved", "rule", rule.Name, "target", target)
		go e.deliver(webhooks, &alertCopy)
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.clock.Now().Add(-recentWindow)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Reset drops firing alerts, history and cooldowns. Called when statistics
// are reset so stale alerts do not outlive the data that raised them.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = make(map[string]*Alert)
	e.lastFire = make(map[string]time.Time)
	e.history = nil
}
