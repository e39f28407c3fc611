package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const configName = "lxplug-updater"

// Config holds all daemon configuration.
type Config struct {
	// Hours between periodic update checks. 0 disables periodic checks.
	Interval int `mapstructure:"interval"`

	// Process name of the first-boot setup wizard; while it is running,
	// the startup update check is skipped.
	WizardProcess string `mapstructure:"wizard_process"`

	// Path of the privileged installer binary and the askpass helper
	// handed to sudo.
	InstallerPath string `mapstructure:"installer_path"`
	AskpassPath   string `mapstructure:"askpass_path"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval:      24,
		WizardProcess: "piwiz",
		InstallerPath: "lxplug-updater-install",
		AskpassPath:   "/usr/lib/lxplug-updater/askpass.sh",
		LogLevel:      "info",
	}
}

// Load reads configuration from file and environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("LXPLUG_UPDATER")
	viper.AutomaticEnv()

	// A missing config file is fine; everything falls back to defaults.
	if err := viper.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Interval < 0 {
		cfg.Interval = 0
	}

	return cfg, nil
}

// SaveInterval persists the check interval, the only value the daemon
// writes back.
func SaveInterval(hours int) error {
	dir := configDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	viper.Set("interval", hours)
	return viper.WriteConfigAs(filepath.Join(dir, configName+".yaml"))
}

// Watch invokes onChange with a freshly unmarshaled Config whenever the
// config file is rewritten. A rewrite that fails to unmarshal is logged
// and dropped; the previous configuration stays in effect.
func Watch(logger *zap.Logger, onChange func(*Config)) {
	viper.OnConfigChange(func(ev fsnotify.Event) {
		cfg, err := reloaded()
		if err != nil {
			logger.Warn("ignoring config change",
				zap.String("file", ev.Name),
				zap.Error(err))
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

// reloaded unmarshals the current viper state into a fresh Config.
func reloaded() (*Config, error) {
	cfg := DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	return cfg, nil
}

// configDir returns the per-user config directory, falling back to a
// system path when no user dir is resolvable.
func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, configName)
	}
	return "/etc/" + configName
}
