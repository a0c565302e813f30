package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/obsidianstack/pingwatch/pkg/types"
)

const defaultICMPSize = 56 // 64 bytes - 8 byte ICMP header

// ICMPConfig tunes an ICMPProber.
type ICMPConfig struct {
	Timeout    time.Duration
	Privileged bool
	Size       int
	Interface  string
}

// ICMPProber sends a single ICMP echo per Probe call.
type ICMPProber struct {
	log    *slog.Logger
	cfg    *ICMPConfig
	target string

	// newPinger is swapped in tests to avoid touching the network.
	newPinger func(addr string) (*probing.Pinger, error)
}

// NewICMP returns an ICMPProber for target. A nil cfg uses defaults.
func NewICMP(log *slog.Logger, target string, cfg *ICMPConfig) (*ICMPProber, error) {
	if log == nil {
		return nil, fmt.Errorf("probe: log is nil")
	}
	if target == "" {
		return nil, fmt.Errorf("probe: target is required")
	}
	if cfg == nil {
		cfg = &ICMPConfig{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Size <= 0 {
		cfg.Size = defaultICMPSize
	}
	return &ICMPProber{
		log:       log,
		cfg:       cfg,
		target:    target,
		newPinger: probing.NewPinger,
	}, nil
}

// Target returns the probed address.
func (p *ICMPProber) Target() string { return p.target }

// Probe sends one echo request and waits up to the configured timeout for
// the reply.
func (p *ICMPProber) Probe(ctx context.Context) types.Sample {
	pinger, err := p.newPinger(p.target)
	if err != nil {
		// Resolution failures land here; the target may come back later.
		p.log.Debug("probe: icmp pinger setup failed", "target", p.target, "err", err)
		return types.Failure()
	}
	defer pinger.Stop()

	pinger.SetPrivileged(p.cfg.Privileged)
	pinger.Count = 1
	pinger.Timeout = p.cfg.Timeout
	pinger.Size = p.cfg.Size
	if p.cfg.Interface != "" {
		pinger.InterfaceName = p.cfg.Interface
	}

	replies := make(chan probing.Packet, 1)
	pinger.OnRecv = func(pkt *probing.Packet) {
		select {
		case replies <- *pkt:
		default:
		}
	}

	if err := pinger.RunWithContext(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			p.log.Debug("probe: icmp timeout", "target", p.target, "err", err)
		} else {
			p.log.Debug("probe: icmp run failed", "target", p.target, "err", err)
		}
		return types.Failure()
	}

	select {
	case pkt := <-replies:
		return sampleFromPacket(pkt)
	default:
		p.log.Debug("probe: icmp no reply", "target", p.target, "timeout", p.cfg.Timeout)
		return types.Failure()
	}
}

// sampleFromPacket turns an echo reply into a Sample. Some platforms do not
// deliver the reply TTL to unprivileged sockets; those replies report TTL 0.
func sampleFromPacket(pkt probing.Packet) types.Sample {
	ttl := pkt.TTL
	if ttl < 0 {
		ttl = 0
	}
	return types.Success(uint32(ttl), millis(pkt.Rtt))
}
