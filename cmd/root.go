package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/billm/framehub/internal/config"
	"github.com/billm/framehub/internal/logger"
)

// Version is the framehub version, overridden at link time
var Version = "0.1.0"

var (
	// CLI flags shared by every subcommand
	cfgFile   string
	logLevel  string
	logFormat string
	logOutput string

	rootLog *logger.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "framehub",
	Short: "framehub - a hub shell that embeds independently deployed modules",
	Long: `framehub runs a hub shell that owns navigation, the signed-in user and the
sidebar, and embeds independently deployed modules that talk to it over a
framed message channel (WebSocket or gRPC).

Run "framehub hub" to serve the shell and "framehub module" to join a module
process to a running hub.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if rootLog != nil {
			rootLog.Error("Command execution failed", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Config file path (default: $HOME/.config/framehub/config.yaml when present)")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (default: from config or env)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Log format: json, text (default: from config or env)")
	rootCmd.PersistentFlags().StringVar(&logOutput, "log-output", "",
		"Log output: stdout, stderr, or file path (default: from config or env)")

	rootCmd.AddCommand(hubCmd, moduleCmd)
}

// loadConfig reads the config file and environment, applies CLI overrides
// and validates the result
func loadConfig(overrides config.OverrideOptions) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	overrides.LogLevel = logLevel
	overrides.LogFormat = logFormat
	overrides.LogOutput = logOutput
	cfg.ApplyOverrides(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger installs the global logger described by cfg
func initLogger(cfg config.LoggingConfig) error {
	log, err := logger.InitGlobal(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	rootLog = log
	return nil
}
