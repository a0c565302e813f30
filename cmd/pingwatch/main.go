// Command pingwatch continuously probes one network target and serves rolling
// reachability statistics over HTTP, WebSocket and Prometheus.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Set by the linker at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var flags = &cliFlags{}

var rootCmd = &cobra.Command{
	Use:   "pingwatch",
	Short: "Continuous ping monitor with a JSON and WebSocket API",
	// Running without a subcommand starts the server.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start probing and serve the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and print the effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig(cmd.Flags(), flags)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), cfg, path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "version: %s\ncommit: %s\ndate: %s\n", version, commit, date)
	},
}

func init() {
	flags.register(rootCmd.PersistentFlags())
	rootCmd.AddCommand(runCmd, checkCmd, versionCmd)
}

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
