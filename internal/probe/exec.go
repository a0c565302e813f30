package probe

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/obsidianstack/pingwatch/pkg/types"
)

const defaultPingBinary = "ping"

var (
	ttlPattern  = regexp.MustCompile(`(?i)ttl=(\d+)`)
	timePattern = regexp.MustCompile(`time[=<](\d+(?:\.\d+)?)`)
)

// ExecConfig tunes an ExecProber.
type ExecConfig struct {
	Timeout time.Duration
	// Binary is the ping executable. Defaults to "ping" on PATH.
	Binary string
}

// runFunc runs a command and returns its standard output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecProber runs the system ping binary once per Probe call. It is the
// fallback when the process may not open ICMP sockets itself.
type ExecProber struct {
	log    *slog.Logger
	cfg    *ExecConfig
	target string
	run    runFunc
}

// NewExec returns an ExecProber for target. A nil cfg uses defaults.
func NewExec(log *slog.Logger, target string, cfg *ExecConfig) (*ExecProber, error) {
	if log == nil {
		return nil, fmt.Errorf("probe: log is nil")
	}
	if target == "" {
		return nil, fmt.Errorf("probe: target is required")
	}
	if cfg == nil {
		cfg = &ExecConfig{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Binary == "" {
		cfg.Binary = defaultPingBinary
	}
	return &ExecProber{log: log, cfg: cfg, target: target, run: runCommand}, nil
}

// Probe runs "ping -c 1 <target>" bounded by the configured timeout.
func (p *ExecProber) Probe(ctx context.Context) types.Sample {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	out, err := p.run(ctx, p.cfg.Binary, "-c", "1", p.target)
	if err != nil {
		p.log.Debug("probe: ping command failed", "target", p.target, "err", err)
		return types.Failure()
	}

	s, err := parsePingOutput(out)
	if err != nil {
		p.log.Debug("probe: unparseable ping output", "target", p.target, "err", err)
		return types.Failure()
	}
	return s
}

// parsePingOutput extracts the reply TTL and round-trip time from ping output.
// A reply without a TTL is treated as a failure; a reply with a TTL but no
// time is also a failure since a Sample never carries one without the other.
func parsePingOutput(out []byte) (types.Sample, error) {
	ttlMatch := ttlPattern.FindSubmatch(out)
	if ttlMatch == nil {
		return types.Failure(), fmt.Errorf("no ttl in output")
	}
	ttl, err := strconv.ParseUint(string(ttlMatch[1]), 10, 32)
	if err != nil {
		return types.Failure(), fmt.Errorf("parse ttl %q: %w", ttlMatch[1], err)
	}

	timeMatch := timePattern.FindSubmatch(out)
	if timeMatch == nil {
		return types.Failure(), fmt.Errorf("no time in output")
	}
	ms, err := strconv.ParseFloat(string(timeMatch[1]), 64)
	if err != nil {
		return types.Failure(), fmt.Errorf("parse time %q: %w", timeMatch[1], err)
	}

	return types.Success(uint32(ttl), ms), nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
