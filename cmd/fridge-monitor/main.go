// Command fridge-monitor watches a vaccine refrigerator's door, mains supply
// and temperature probes, aggregates them into fixed periods and publishes
// records and alarms to MQTT.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweeney/fridge-monitor/internal/config"
	"github.com/sweeney/fridge-monitor/internal/logger"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the level from the configuration file.
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "fridge-monitor",
		Short: "Monitor a vaccine refrigerator and publish records to MQTT.",
		Long: `Polls the door switch and mains-sense GPIO inputs, samples the vaccine and
ambient temperature probes, and folds everything into 15 minute samples and
8 hour records. Records and alarm transitions are published to MQTT and,
when a database is configured, stored in PostgreSQL.

Without a subcommand the monitoring daemon is started.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
		RunE:              runE,
	}
)

func main() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		logger.Errorf(context.Background(), "fatal: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.Flags().Bool("print-state", false, "print current input and probe state and exit")

	rootCmd.AddCommand(replayCmd, exportCmd, durationCmd)
}

func setupLogging(*cobra.Command, []string) error {
	if logLevel == "" {
		return nil
	}
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}
	logger.SetLevel(level)
	return nil
}

// loadConfig reads the configuration file, falling back to defaults when
// the default file does not exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			logger.Warnf(cmd.Context(), "%s not found, using defaults", configPath)
			cfg := config.Default()
			return cfg, applyLogLevel(cfg)
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, applyLogLevel(cfg)
}

// applyLogLevel applies the configured level unless --log-level was given.
func applyLogLevel(cfg *config.Config) error {
	if logLevel != "" || cfg.LogLevel == "" {
		return nil
	}
	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	logger.SetLevel(level)
	return nil
}
