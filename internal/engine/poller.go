package engine

import (
	"context"

	"github.com/obsidianstack/pingwatch/pkg/types"
)

// Start launches the background poll loop. It is a no-op while the loop is
// already running.
func (e *Engine) Start() {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	if e.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	go e.run(ctx, done)
}

// Stop signals the poll loop to exit and blocks until it has. An in-flight
// probe is not cancelled, so Stop may wait up to one probe timeout plus one
// interval. Stop is a no-op when the loop is not running.
func (e *Engine) Stop() {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	if e.done == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel = nil
	e.done = nil
}

// IsRunning reports whether the poll loop is running.
func (e *Engine) IsRunning() bool {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	return e.done != nil
}

func (e *Engine) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	e.log.Info("engine: poll loop started", "target", e.target, "interval", e.interval)
	defer e.log.Info("engine: poll loop stopped", "target", e.target)

	for {
		if ctx.Err() != nil {
			return
		}

		e.RecordOutcome(e.probeOnce(ctx))

		select {
		case <-ctx.Done():
			return
		case <-e.clock.After(e.interval):
		}
	}
}

// probeOnce runs a single probe outside the state lock. The probe context is
// detached from ctx so that stopping the loop lets the probe finish.
func (e *Engine) probeOnce(ctx context.Context) (s types.Sample) {
	pctx := context.WithoutCancel(ctx)
	if e.probeTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(pctx, e.probeTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("engine: prober panicked, recording failure", "target", e.target, "panic", r)
			s = types.Failure()
		}
	}()

	return e.prober.Probe(pctx)
}
