// Package config handles configuration management for sfpoll.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianly1003/sfpoll/internal/poller"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Poller    PollerConfig    `mapstructure:"poller" yaml:"poller"`
	Validator ValidatorConfig `mapstructure:"validator" yaml:"validator"`
	Processor ProcessorConfig `mapstructure:"processor" yaml:"processor"`
	Journal   JournalConfig   `mapstructure:"journal" yaml:"journal"`
	Status    StatusConfig    `mapstructure:"status" yaml:"status"`
	Lock      LockConfig      `mapstructure:"lock" yaml:"lock"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// PollerConfig holds the polling engine configuration.
type PollerConfig struct {
	InputDir              string   `mapstructure:"input_dir" yaml:"input_dir"`
	OutputDir             string   `mapstructure:"output_dir" yaml:"output_dir"`
	TmpDir                string   `mapstructure:"tmp_dir" yaml:"tmp_dir"`
	DeleteInput           bool     `mapstructure:"delete_input" yaml:"delete_input"`
	DeleteOtherInputFiles bool     `mapstructure:"delete_other_input_files" yaml:"delete_other_input_files"`
	Continuous            bool     `mapstructure:"continuous" yaml:"continuous"`
	MaxFiles              int      `mapstructure:"max_files" yaml:"max_files"`
	Extensions            []string `mapstructure:"extensions" yaml:"extensions"`
	OtherInputFiles       []string `mapstructure:"other_input_files" yaml:"other_input_files"`
	BlacklistTries        int      `mapstructure:"blacklist_tries" yaml:"blacklist_tries"`
	PollWaitMS            int      `mapstructure:"poll_wait_ms" yaml:"poll_wait_ms"`
	UseWatchdog           bool     `mapstructure:"use_watchdog" yaml:"use_watchdog"`
	WatchdogIntervalMS    int      `mapstructure:"watchdog_check_interval_ms" yaml:"watchdog_check_interval_ms"`
	WatchdogDebounceMS    int      `mapstructure:"watchdog_debounce_ms" yaml:"watchdog_debounce_ms"`
	Verbose               bool     `mapstructure:"verbose" yaml:"verbose"`
	Progress              bool     `mapstructure:"progress" yaml:"progress"`
	OutputTimestamp       bool     `mapstructure:"output_timestamp" yaml:"output_timestamp"`
	OutputNumFiles        bool     `mapstructure:"output_num_files" yaml:"output_num_files"`
}

// ValidatorConfig selects the built-in file validator.
type ValidatorConfig struct {
	Type     string `mapstructure:"type" yaml:"type"` // accept | min_age
	MinAgeMS int    `mapstructure:"min_age_ms" yaml:"min_age_ms"`
}

// ProcessorConfig selects the built-in file processor.
type ProcessorConfig struct {
	Type           string `mapstructure:"type" yaml:"type"` // none | done_marker | command
	Command        string `mapstructure:"command" yaml:"command"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// JournalConfig holds the processing journal configuration.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// StatusConfig holds the status endpoint configuration.
type StatusConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Host    string `mapstructure:"host" yaml:"host"`
	Port    int    `mapstructure:"port" yaml:"port"`
}

// LockConfig holds the input directory lock configuration.
type LockConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.sfpoll")
		v.AddConfigPath("/etc/sfpoll")
	}

	// Read config file (optional - not an error if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	if err := postProcess(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	cfg, err := unmarshal(newViper())
	if err != nil {
		// Defaults are static; decoding them cannot fail.
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("SFPOLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values. Every key is registered so
// that environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	// Poller defaults
	v.SetDefault("poller.input_dir", "")
	v.SetDefault("poller.output_dir", "")
	v.SetDefault("poller.tmp_dir", "")
	v.SetDefault("poller.delete_input", false)
	v.SetDefault("poller.delete_other_input_files", false)
	v.SetDefault("poller.continuous", false)
	v.SetDefault("poller.max_files", DefaultMaxFiles)
	v.SetDefault("poller.extensions", []string{})
	v.SetDefault("poller.other_input_files", []string{})
	v.SetDefault("poller.blacklist_tries", DefaultBlacklistTries)
	v.SetDefault("poller.poll_wait_ms", DefaultPollWaitMS)
	v.SetDefault("poller.use_watchdog", false)
	v.SetDefault("poller.watchdog_check_interval_ms", DefaultWatchdogIntervalMS)
	v.SetDefault("poller.watchdog_debounce_ms", 0)
	v.SetDefault("poller.verbose", false)
	v.SetDefault("poller.progress", true)
	v.SetDefault("poller.output_timestamp", true)
	v.SetDefault("poller.output_num_files", false)

	// Handler defaults
	v.SetDefault("validator.type", ValidatorAccept)
	v.SetDefault("validator.min_age_ms", DefaultMinAgeMS)
	v.SetDefault("processor.type", ProcessorDoneMarker)
	v.SetDefault("processor.command", "")
	v.SetDefault("processor.timeout_seconds", 0)

	// Journal defaults
	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.path", "")

	// Status endpoint defaults
	v.SetDefault("status.enabled", false)
	v.SetDefault("status.host", "127.0.0.1")
	v.SetDefault("status.port", DefaultStatusPort)

	// Lock defaults
	v.SetDefault("lock.enabled", true)
	v.SetDefault("lock.dir", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// postProcess applies post-processing to configuration.
func postProcess(cfg *Config) error {
	p := &cfg.Poller
	for _, dir := range []*string{&p.InputDir, &p.OutputDir, &p.TmpDir} {
		if *dir == "" {
			continue
		}
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", *dir, err)
		}
		*dir = abs
	}

	if cfg.Journal.Path == "" {
		dir, err := GetConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve journal path: %w", err)
		}
		cfg.Journal.Path = filepath.Join(dir, DefaultJournalFile)
	}

	if cfg.Lock.Dir == "" {
		cfg.Lock.Dir = DefaultLockDir()
	}

	return nil
}

// ToOptions maps the poller section to poller options. An empty extension
// list accepts every file.
func (c *Config) ToOptions() poller.Options {
	p := c.Poller
	opts := poller.DefaultOptions()

	opts.InputDir = p.InputDir
	opts.OutputDir = p.OutputDir
	opts.TmpDir = p.TmpDir
	opts.DeleteInput = p.DeleteInput
	opts.DeleteOtherInputFiles = p.DeleteOtherInputFiles
	opts.Continuous = p.Continuous
	opts.MaxFiles = p.MaxFiles
	if len(p.Extensions) > 0 {
		opts.Extensions = append([]string(nil), p.Extensions...)
	}
	if len(p.OtherInputFiles) > 0 {
		opts.OtherInputFiles = append([]string(nil), p.OtherInputFiles...)
	}
	opts.BlacklistTries = p.BlacklistTries
	opts.PollWait = time.Duration(p.PollWaitMS) * time.Millisecond
	opts.UseWatchdog = p.UseWatchdog
	opts.WatchdogCheckInterval = time.Duration(p.WatchdogIntervalMS) * time.Millisecond
	opts.Verbose = p.Verbose
	opts.Progress = p.Progress
	opts.OutputTimestamp = p.OutputTimestamp
	opts.OutputNumFiles = p.OutputNumFiles

	return opts
}

// StatusAddr returns the listen address of the status endpoint.
func (c *Config) StatusAddr() string {
	return fmt.Sprintf("%s:%d", c.Status.Host, c.Status.Port)
}

// GetConfigDir returns the user config directory for sfpoll.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".sfpoll"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
