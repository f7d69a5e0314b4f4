// Package main implements the outreach CLI: the serve command that owns the
// browser session and engine, plus client commands that drive it over HTTP.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"outreach/internal/config"
	"outreach/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath    string
	verbose       bool
	serverAddr    string
	clientTimeout time.Duration

	appConfig *config.Config
	logger    *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Connection outreach engine for LinkedIn People search",
	Long: `outreach filters People search results in a Chrome tab and sends
connection invitations that match the configured job title, location and
mutual connection rules.

Run "outreach serve" to start the engine, then drive it with the other
commands from any terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		appConfig = cfg

		if err := logging.Initialize(cfg.Logging.ForLogger(filepath.Dir(configPath))); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "Control API address (default: control.listen)")
	rootCmd.PersistentFlags().DurationVar(&clientTimeout, "timeout", 0, "Request timeout (default: control.client_timeout)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(dryRunCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(operationsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(debugCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
