package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Poller.MaxFiles != DefaultMaxFiles {
		t.Errorf("default MaxFiles = %d, want %d", cfg.Poller.MaxFiles, DefaultMaxFiles)
	}
	if cfg.Poller.BlacklistTries != 3 {
		t.Errorf("default BlacklistTries = %d, want 3", cfg.Poller.BlacklistTries)
	}
	if cfg.Poller.PollWaitMS != 1000 {
		t.Errorf("default PollWaitMS = %d, want 1000", cfg.Poller.PollWaitMS)
	}
	if !cfg.Poller.Progress || !cfg.Poller.OutputTimestamp {
		t.Error("default Progress and OutputTimestamp should be true")
	}
	if cfg.Validator.Type != ValidatorAccept {
		t.Errorf("default Validator.Type = %s, want %s", cfg.Validator.Type, ValidatorAccept)
	}
	if cfg.Processor.Type != ProcessorDoneMarker {
		t.Errorf("default Processor.Type = %s, want %s", cfg.Processor.Type, ProcessorDoneMarker)
	}
	if cfg.Status.Enabled {
		t.Error("default Status.Enabled should be false")
	}
	if !cfg.Lock.Enabled || cfg.Lock.Dir != DefaultLockDir() {
		t.Errorf("default Lock = %+v, want enabled in %s", cfg.Lock, DefaultLockDir())
	}
	if filepath.Base(cfg.Journal.Path) != DefaultJournalFile {
		t.Errorf("default Journal.Path = %s, want to end with %s", cfg.Journal.Path, DefaultJournalFile)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("default Logging = %+v", cfg.Logging)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	in := filepath.Join(tempDir, "in")

	configContent := `
poller:
  input_dir: "` + in + `"
  output_dir: "out"
  continuous: true
  max_files: 10
  extensions: [".jpg", ".png"]
  other_input_files: ["{NAME}.meta"]
  blacklist_tries: 5
  poll_wait_ms: 250
  use_watchdog: true
  watchdog_check_interval_ms: 3000
  watchdog_debounce_ms: 50

validator:
  type: min_age
  min_age_ms: 500

processor:
  type: command
  command: "convert {INPUT} {OUTPUT_DIR}/thumb.png"
  timeout_seconds: 30

journal:
  enabled: true
  path: "` + filepath.Join(tempDir, "j.db") + `"

status:
  enabled: true
  port: 9001

logging:
  level: debug
  format: json
`
	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Chdir(tempDir)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Poller.InputDir != in {
		t.Errorf("InputDir = %s, want %s", cfg.Poller.InputDir, in)
	}
	if !filepath.IsAbs(cfg.Poller.OutputDir) || filepath.Base(cfg.Poller.OutputDir) != "out" {
		t.Errorf("OutputDir = %s, want absolute path ending in out", cfg.Poller.OutputDir)
	}
	if cfg.Poller.MaxFiles != 10 {
		t.Errorf("MaxFiles = %d, want 10", cfg.Poller.MaxFiles)
	}
	if !slices.Equal(cfg.Poller.Extensions, []string{".jpg", ".png"}) {
		t.Errorf("Extensions = %v", cfg.Poller.Extensions)
	}
	if cfg.Poller.WatchdogDebounceMS != 50 {
		t.Errorf("WatchdogDebounceMS = %d, want 50", cfg.Poller.WatchdogDebounceMS)
	}
	if cfg.Validator.Type != ValidatorMinAge || cfg.Validator.MinAgeMS != 500 {
		t.Errorf("Validator = %+v", cfg.Validator)
	}
	if cfg.Processor.Type != ProcessorCommand || cfg.Processor.TimeoutSeconds != 30 {
		t.Errorf("Processor = %+v", cfg.Processor)
	}
	if !cfg.Journal.Enabled || cfg.Journal.Path != filepath.Join(tempDir, "j.db") {
		t.Errorf("Journal = %+v", cfg.Journal)
	}
	if cfg.StatusAddr() != "127.0.0.1:9001" {
		t.Errorf("StatusAddr() = %s, want 127.0.0.1:9001", cfg.StatusAddr())
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %s, want json", cfg.Logging.Format)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("poller: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("poller:\n  blacklist_tries: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Load() error = nil, want validation error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SFPOLL_POLLER_MAX_FILES", "7")
	t.Setenv("SFPOLL_POLLER_CONTINUOUS", "true")
	t.Setenv("SFPOLL_STATUS_PORT", "9123")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Poller.MaxFiles != 7 {
		t.Errorf("Poller.MaxFiles = %d, want 7", cfg.Poller.MaxFiles)
	}
	if !cfg.Poller.Continuous {
		t.Error("Poller.Continuous should be true")
	}
	if cfg.Status.Port != 9123 {
		t.Errorf("Status.Port = %d, want 9123", cfg.Status.Port)
	}
}

func TestToOptions(t *testing.T) {
	cfg := Default()
	cfg.Poller.InputDir = "/data/in"
	cfg.Poller.OutputDir = "/data/out"
	cfg.Poller.MaxFiles = 4
	cfg.Poller.Extensions = []string{".jpg"}
	cfg.Poller.PollWaitMS = 1500
	cfg.Poller.UseWatchdog = true
	cfg.Poller.WatchdogIntervalMS = 2000

	opts := cfg.ToOptions()

	if opts.InputDir != "/data/in" || opts.OutputDir != "/data/out" {
		t.Errorf("dirs = %s, %s", opts.InputDir, opts.OutputDir)
	}
	if opts.MaxFiles != 4 {
		t.Errorf("MaxFiles = %d, want 4", opts.MaxFiles)
	}
	if !slices.Equal(opts.Extensions, []string{".jpg"}) {
		t.Errorf("Extensions = %v", opts.Extensions)
	}
	if opts.PollWait != 1500*time.Millisecond {
		t.Errorf("PollWait = %v, want 1.5s", opts.PollWait)
	}
	if !opts.UseWatchdog || opts.WatchdogCheckInterval != 2*time.Second {
		t.Errorf("watchdog = %v, %v", opts.UseWatchdog, opts.WatchdogCheckInterval)
	}
	if opts.BlacklistTries != DefaultBlacklistTries {
		t.Errorf("BlacklistTries = %d, want %d", opts.BlacklistTries, DefaultBlacklistTries)
	}
}

func TestToOptions_EmptyListsAcceptEverything(t *testing.T) {
	opts := Default().ToOptions()
	if opts.Extensions != nil {
		t.Errorf("Extensions = %v, want nil", opts.Extensions)
	}
	if opts.OtherInputFiles != nil {
		t.Errorf("OtherInputFiles = %v, want nil", opts.OtherInputFiles)
	}
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if filepath.Base(dir) != ".sfpoll" {
		t.Errorf("GetConfigDir() = %s, want to end with .sfpoll", dir)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir, err := EnsureConfigDir()
	if err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("failed to stat config dir: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("config path %s is not a directory", dir)
	}
}
