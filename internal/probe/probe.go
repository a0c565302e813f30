package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/obsidianstack/pingwatch/internal/config"
	"github.com/obsidianstack/pingwatch/pkg/types"
)

const defaultTimeout = time.Second

// Prober performs one reachability check. Implementations must honour ctx and
// bound their own runtime by their configured timeout.
type Prober interface {
	Probe(ctx context.Context) types.Sample
}

// Func adapts an ordinary function to the Prober interface.
type Func func(ctx context.Context) types.Sample

// Probe calls f(ctx).
func (f Func) Probe(ctx context.Context) types.Sample { return f(ctx) }

// New returns the Prober selected by cfg.Method.
func New(target string, cfg config.ProbeConfig, log *slog.Logger) (Prober, error) {
	switch cfg.Method {
	case config.ProbeMethodICMP, "":
		return NewICMP(log, target, &ICMPConfig{
			Timeout:    cfg.Timeout.Duration(),
			Privileged: cfg.Privileged,
			Size:       cfg.Size,
			Interface:  cfg.Interface,
		})
	case config.ProbeMethodExec:
		return NewExec(log, target, &ExecConfig{
			Timeout: cfg.Timeout.Duration(),
			Binary:  cfg.Binary,
		})
	default:
		return nil, fmt.Errorf("probe: unsupported method %q", cfg.Method)
	}
}

// millis converts a duration to fractional milliseconds.
func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
