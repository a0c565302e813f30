package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/obsidianstack/pingwatch/internal/config"
)

const defaultConfigPath = "config.yaml"

// cliFlags are the persistent command-line overrides. They win over both
// the config file and PINGWATCH_* environment variables.
type cliFlags struct {
	configPath string
	target     string
	port       int
	verbose    bool

	// set is the parsed flag set, kept so overrides can be re-applied on reload.
	set *pflag.FlagSet
}

func (f *cliFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", defaultConfigPath, "path to the YAML config file")
	fs.StringVar(&f.target, "target", "", "address to probe (overrides config)")
	fs.IntVar(&f.port, "port", 0, "HTTP listen port (overrides config)")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
}

// applyOverrides copies explicitly set flags onto cfg.
func (f *cliFlags) applyOverrides(cfg *config.Config) {
	if f.set == nil {
		return
	}
	if f.set.Changed("target") {
		cfg.Target = f.target
	}
	if f.set.Changed("port") {
		cfg.Server.Port = f.port
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
}

// resolveConfigPath returns the file to load. The default path is optional:
// when it does not exist the built-in defaults are used. An explicitly
// given path must exist.
func (f *cliFlags) resolveConfigPath(fs *pflag.FlagSet) (string, error) {
	if fs.Changed("config") {
		return f.configPath, nil
	}
	if _, err := os.Stat(f.configPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("stat %s: %w", f.configPath, err)
	}
	return f.configPath, nil
}

// loadConfig resolves, loads and validates the effective configuration.
func loadConfig(fs *pflag.FlagSet, f *cliFlags) (*config.Config, string, error) {
	f.set = fs
	path, err := f.resolveConfigPath(fs)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	f.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func printSummary(w io.Writer, cfg *config.Config, path string) {
	src := path
	if src == "" {
		src = "(defaults)"
	}
	fmt.Fprintf(w, "config:       %s\n", src)
	fmt.Fprintf(w, "target:       %s\n", cfg.Target)
	fmt.Fprintf(w, "probe:        %s every %s (timeout %s)\n",
		cfg.Probe.Method, cfg.Probe.Interval.Duration(), cfg.Probe.Timeout.Duration())
	fmt.Fprintf(w, "stats:        max_points=%d num_windows=%d\n", cfg.Stats.MaxPoints, cfg.Stats.NumWindows)
	fmt.Fprintf(w, "listen:       %s\n", cfg.Server.Addr())
	fmt.Fprintf(w, "auth:         %s\n", authSummary(cfg.Server.Auth))
	if cfg.Metrics.Enabled {
		fmt.Fprintf(w, "metrics:      %s\n", cfg.Metrics.Path)
	} else {
		fmt.Fprintln(w, "metrics:      disabled")
	}
	fmt.Fprintf(w, "alert rules:  %d\n", len(cfg.Alerts.Rules))
}

func authSummary(a config.AuthConfig) string {
	if a.Mode != "apikey" {
		return "none"
	}
	if a.Key() == "" {
		return fmt.Sprintf("apikey (%s unset, reset is open)", a.KeyEnv)
	}
	return "apikey via " + a.EffectiveHeader()
}
