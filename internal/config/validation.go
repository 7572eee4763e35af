package config

import (
	"strings"

	"github.com/brianly1003/sfpoll/internal/domain"
	"github.com/rs/zerolog"
)

// Validate validates the configuration. Directory existence is checked by
// the poller when polling starts, after command-line overrides are applied.
func Validate(cfg *Config) error {
	if err := validatePoller(&cfg.Poller); err != nil {
		return err
	}

	if err := validateValidator(&cfg.Validator); err != nil {
		return err
	}

	if err := validateProcessor(&cfg.Processor); err != nil {
		return err
	}

	if err := validateStatus(&cfg.Status); err != nil {
		return err
	}

	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		return domain.NewConfigError("journal.path", "cannot be empty when the journal is enabled")
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}

	return nil
}

func validatePoller(cfg *PollerConfig) error {
	if cfg.BlacklistTries < 1 {
		return domain.NewConfigError("poller.blacklist_tries", "must be at least 1")
	}
	if cfg.PollWaitMS < 0 {
		return domain.NewConfigError("poller.poll_wait_ms", "cannot be negative")
	}
	if cfg.WatchdogIntervalMS < 1 {
		return domain.NewConfigError("poller.watchdog_check_interval_ms", "must be at least 1")
	}
	if cfg.WatchdogDebounceMS < 0 {
		return domain.NewConfigError("poller.watchdog_debounce_ms", "cannot be negative")
	}
	if cfg.WatchdogDebounceMS > MaxDebounceMS {
		return domain.NewConfigError("poller.watchdog_debounce_ms", "cannot exceed %dms", MaxDebounceMS)
	}
	for _, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return domain.NewConfigError("poller.extensions", "all extensions must start with '.' (%v)", cfg.Extensions)
		}
	}
	return nil
}

func validateValidator(cfg *ValidatorConfig) error {
	switch cfg.Type {
	case ValidatorAccept:
	case ValidatorMinAge:
		if cfg.MinAgeMS < 0 {
			return domain.NewConfigError("validator.min_age_ms", "cannot be negative")
		}
	default:
		return domain.NewConfigError("validator.type", "unknown validator %q (want %s or %s)", cfg.Type, ValidatorAccept, ValidatorMinAge)
	}
	return nil
}

func validateProcessor(cfg *ProcessorConfig) error {
	switch cfg.Type {
	case ProcessorNone, ProcessorDoneMarker:
	case ProcessorCommand:
		if strings.TrimSpace(cfg.Command) == "" {
			return domain.NewConfigError("processor.command", "cannot be empty for the command processor")
		}
	default:
		return domain.NewConfigError("processor.type", "unknown processor %q", cfg.Type)
	}
	if cfg.TimeoutSeconds < 0 {
		return domain.NewConfigError("processor.timeout_seconds", "cannot be negative")
	}
	return nil
}

func validateStatus(cfg *StatusConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return domain.NewConfigError("status.port", "must be between 1 and 65535")
	}
	if cfg.Host == "" {
		return domain.NewConfigError("status.host", "cannot be empty")
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	if _, err := zerolog.ParseLevel(cfg.Level); err != nil {
		return domain.NewConfigError("logging.level", "%v", err)
	}
	switch cfg.Format {
	case "console", "json":
	default:
		return domain.NewConfigError("logging.format", "must be console or json, got %q", cfg.Format)
	}
	return nil
}
