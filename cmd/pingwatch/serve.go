package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/obsidianstack/pingwatch/internal/alerts"
	"github.com/obsidianstack/pingwatch/internal/api"
	"github.com/obsidianstack/pingwatch/internal/auth"
	"github.com/obsidianstack/pingwatch/internal/config"
	"github.com/obsidianstack/pingwatch/internal/engine"
	"github.com/obsidianstack/pingwatch/internal/logging"
	"github.com/obsidianstack/pingwatch/internal/metrics"
	"github.com/obsidianstack/pingwatch/internal/probe"
	"github.com/obsidianstack/pingwatch/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command) error {
	cfg, path, err := loadConfig(cmd.Flags(), flags)
	if err != nil {
		return err
	}

	log, level, err := logging.New(os.Stdout, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, path, level)
}

// serve wires the engine, alerting, API, stream and metrics together and
// blocks until ctx is cancelled or the listener fails.
func serve(ctx context.Context, cfg *config.Config, path string, level *slog.LevelVar) error {
	log := slog.Default()

	prober, err := probe.New(cfg.Target, cfg.Probe, log)
	if err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		prober = metrics.Instrument(cfg.Target, prober)
	}

	eng, err := engine.New(engine.Config{
		Target:       cfg.Target,
		MaxPoints:    cfg.Stats.MaxPoints,
		NumWindows:   cfg.Stats.NumWindows,
		Interval:     cfg.Probe.Interval.Duration(),
		ProbeTimeout: cfg.Probe.Timeout.Duration(),
		Prober:       prober,
		MaxOutages:   cfg.Stats.MaxOutages,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	defer eng.Stop()

	if cfg.Probe.Autostart {
		eng.Start()
	}

	alertEngine := alerts.New(cfg.Alerts, nil)
	go alertEngine.Run(ctx, eng, cfg.Alerts.Interval.Duration())

	handler := api.New(api.Options{
		Engine:    eng,
		Alerts:    alertEngine,
		Settings:  settingsFrom(cfg),
		ResetAuth: auth.APIKey(cfg.Server.Auth.Mode, cfg.Server.Auth.EffectiveHeader(), cfg.Server.Auth.Key()),
		Logger:    log,
	})

	hub := ws.New(eng, cfg.Server.AutoRefreshInterval.Duration())
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/api/", handler)
	mux.Handle("/ws/stream", hub)

	if cfg.Metrics.Enabled {
		prometheus.MustRegister(metrics.NewCollector(eng))
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		mux.Handle(cfg.Metrics.Path, metrics.Handler(prometheus.DefaultGatherer))
	}

	if path != "" {
		current := cfg
		go func() {
			err := config.Watch(ctx, path, func(next *config.Config) {
				flags.applyOverrides(next)
				if err := next.Validate(); err != nil {
					slog.Error("config: reloaded config rejected", "err", err)
					return
				}
				if changed := config.RestartRequired(current, next); len(changed) > 0 {
					slog.Warn("config: some changes take effect only after restart", "fields", changed)
				}
				handler.SetSettings(settingsFrom(next))
				hub.SetInterval(next.Server.AutoRefreshInterval.Duration())
				alertEngine.Update(next.Alerts)
				if err := logging.SetLevel(level, next.Log.Level); err != nil {
					slog.Error("config: invalid log level", "err", err)
				}
				current = next
			})
			if err != nil {
				slog.Error("config: watcher stopped", "path", path, "err", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("pingwatch: listening",
			"addr", httpSrv.Addr,
			"target", cfg.Target,
			"method", cfg.Probe.Method,
			"version", version,
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("pingwatch: http server: %w", err)
		}
	}

	slog.Info("pingwatch: shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		slog.Error("pingwatch: http shutdown", "err", err)
	}
	return nil
}

func settingsFrom(cfg *config.Config) api.Settings {
	return api.Settings{
		APIURL:              cfg.Server.APIURL,
		AutoRefreshInterval: cfg.Server.AutoRefreshInterval.Duration(),
		CORSOrigin:          cfg.Server.CORSOrigin,
	}
}
