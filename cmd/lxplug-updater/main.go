package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jose1711/lxplug-updater/internal/config"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lxplug-updater",
	Short: "Software update watcher",
	Long: `lxplug-updater watches for pending software updates, raises a
desktop notification when any are found, and launches the privileged
installer to apply them on request.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lxplug-updater %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the update watcher daemon",
	Long: `Start the daemon. It checks for updates at startup (polling for
network if none is available), then re-checks every configured interval.
SIGUSR1 forces an immediate check; SIGUSR2 installs the pending updates.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return runDaemon(cfg)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one update check and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return runCheck(cfg)
	},
}

var setIntervalCmd = &cobra.Command{
	Use:   "set-interval <hours>",
	Short: "Set the periodic check interval",
	Long: `Persist the number of hours between periodic update checks; 0
disables periodic checking. A running daemon picks the new value up
through its config watch without a restart.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hours, err := strconv.Atoi(args[0])
		if err != nil || hours < 0 {
			return fmt.Errorf("invalid interval %q: want a non-negative number of hours", args[0])
		}
		// Load first so the rewrite keeps every other setting.
		if _, err := config.Load(configPath); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := config.SaveInterval(hours); err != nil {
			return fmt.Errorf("failed to save interval: %w", err)
		}
		fmt.Printf("Check interval set to %d hours\n", hours)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(setIntervalCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildLogger creates the process logger from config.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(cfg.LogLevel); err != nil {
		level = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.LogFile != "" {
		zcfg.OutputPaths = []string{cfg.LogFile}
		zcfg.ErrorOutputPaths = []string{cfg.LogFile}
	}

	return zcfg.Build()
}
