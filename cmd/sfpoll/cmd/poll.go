package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianly1003/sfpoll/internal/adapters/journal"
	"github.com/brianly1003/sfpoll/internal/adapters/watcher"
	"github.com/brianly1003/sfpoll/internal/config"
	"github.com/brianly1003/sfpoll/internal/dirlock"
	"github.com/brianly1003/sfpoll/internal/domain/ports"
	"github.com/brianly1003/sfpoll/internal/handlers"
	"github.com/brianly1003/sfpoll/internal/poller"
	"github.com/brianly1003/sfpoll/internal/server/status"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	pollInput          string
	pollOutput         string
	pollTmp            string
	pollContinuous     bool
	pollWatchdog       bool
	pollMaxFiles       int
	pollExtensions     []string
	pollOtherFiles     []string
	pollDeleteInput    bool
	pollDeleteOther    bool
	pollBlacklistTries int
	pollWait           time.Duration
	pollStatus         bool
	pollStatusPort     int
	pollJournal        bool
	pollNoLock         bool
)

// pollCmd runs the poller.
var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll an input directory and process its files",
	Long: `Poll an input directory and process every eligible file.

Without --continuous, sfpoll exits once the input directory has no more
eligible files. With --continuous it keeps polling until interrupted;
--watchdog reacts to file system events instead of sleeping between polls.

Command-line flags override the configuration file.

Examples:
  sfpoll poll --input /data/in --output /data/out
  sfpoll poll --input in --output out --tmp tmp --ext .jpg --ext .png
  sfpoll poll --input in --output out --continuous --watchdog --status`,
	RunE: runPoll,
}

func init() {
	f := pollCmd.Flags()
	f.StringVarP(&pollInput, "input", "i", "", "input directory to poll")
	f.StringVarP(&pollOutput, "output", "o", "", "output directory for processed files")
	f.StringVarP(&pollTmp, "tmp", "t", "", "staging directory for processor output")
	f.BoolVarP(&pollContinuous, "continuous", "c", false, "keep polling when the input directory is empty")
	f.BoolVarP(&pollWatchdog, "watchdog", "w", false, "react to file system events (requires --continuous)")
	f.IntVar(&pollMaxFiles, "max-files", config.DefaultMaxFiles, "maximum files per poll, <= 0 for unbounded")
	f.StringSliceVarP(&pollExtensions, "ext", "e", nil, "extensions to process, e.g. .jpg (default: all files)")
	f.StringSliceVar(&pollOtherFiles, "other", nil, "sibling file patterns using {NAME}, e.g. {NAME}.xml")
	f.BoolVar(&pollDeleteInput, "delete-input", false, "delete input files instead of moving them to the output directory")
	f.BoolVar(&pollDeleteOther, "delete-other", false, "delete sibling files instead of moving them")
	f.IntVar(&pollBlacklistTries, "blacklist-tries", config.DefaultBlacklistTries, "failed checks before a file is removed from the input directory")
	f.DurationVar(&pollWait, "poll-wait", time.Duration(config.DefaultPollWaitMS)*time.Millisecond, "pause after an empty poll")
	f.BoolVar(&pollStatus, "status", false, "serve the HTTP status endpoint")
	f.IntVar(&pollStatusPort, "status-port", config.DefaultStatusPort, "status endpoint port")
	f.BoolVar(&pollJournal, "journal", false, "record outcomes in the processing journal")
	f.BoolVar(&pollNoLock, "no-lock", false, "do not lock the input directory")
}

func runPoll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	applyPollFlags(cmd, cfg)

	// Re-validate after overrides
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging(cfg)

	opts := cfg.ToOptions()
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Lock.Enabled {
		lock, err := dirlock.Acquire(cfg.Lock.Dir, opts.InputDir)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				log.Warn().Err(err).Msg("failed to release input directory lock")
			}
		}()
	}

	validator, err := buildValidator(cfg)
	if err != nil {
		return err
	}
	options := []poller.Option{
		poller.WithLogger(pollerLogger(cfg, os.Stderr)),
		poller.WithValidator(validator),
		poller.WithProcessor(buildProcessor(cfg)),
		poller.WithNotifier(watcher.NewWatcher(cfg.Poller.WatchdogDebounceMS)),
	}

	var history status.History
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer j.Close()
		options = append(options, poller.WithRecorder(j))
		history = j
		log.Info().Str("path", j.Path()).Msg("processing journal enabled")
	}

	p := poller.New(opts, options...)

	if cfg.Status.Enabled {
		srv := status.NewServer(cfg.StatusAddr(), opts.InputDir, p, history)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}
		defer func() {
			if err := srv.Stop(context.Background()); err != nil {
				log.Warn().Err(err).Msg("failed to stop status server")
			}
		}()
	}

	log.Info().
		Str("version", version).
		Str("input", opts.InputDir).
		Str("output", opts.OutputDir).
		Bool("continuous", opts.Continuous).
		Bool("watchdog", opts.UseWatchdog).
		Msg("starting sfpoll")

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := p.Poll(ctx); err != nil {
		return fmt.Errorf("polling failed: %w", err)
	}

	stats := p.Stats()
	log.Info().
		Int64("cycles", stats.Cycles).
		Int64("processed", stats.Processed).
		Int64("failed", stats.Failed).
		Int64("expired", stats.Expired).
		Msg("sfpoll stopped")
	return nil
}

// applyPollFlags overrides configuration values with explicitly set flags.
func applyPollFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	p := &cfg.Poller

	if f.Changed("input") {
		p.InputDir = pollInput
	}
	if f.Changed("output") {
		p.OutputDir = pollOutput
	}
	if f.Changed("tmp") {
		p.TmpDir = pollTmp
	}
	if f.Changed("continuous") {
		p.Continuous = pollContinuous
	}
	if f.Changed("watchdog") {
		p.UseWatchdog = pollWatchdog
	}
	if f.Changed("max-files") {
		p.MaxFiles = pollMaxFiles
	}
	if f.Changed("ext") {
		p.Extensions = pollExtensions
	}
	if f.Changed("other") {
		p.OtherInputFiles = pollOtherFiles
	}
	if f.Changed("delete-input") {
		p.DeleteInput = pollDeleteInput
	}
	if f.Changed("delete-other") {
		p.DeleteOtherInputFiles = pollDeleteOther
	}
	if f.Changed("blacklist-tries") {
		p.BlacklistTries = pollBlacklistTries
	}
	if f.Changed("poll-wait") {
		p.PollWaitMS = int(pollWait.Milliseconds())
	}
	if f.Changed("status") {
		cfg.Status.Enabled = pollStatus
	}
	if f.Changed("status-port") {
		cfg.Status.Port = pollStatusPort
	}
	if f.Changed("journal") {
		cfg.Journal.Enabled = pollJournal
	}
	if f.Changed("no-lock") {
		cfg.Lock.Enabled = !pollNoLock
	}
	if verbose {
		p.Verbose = true
	}
}

func buildValidator(cfg *config.Config) (ports.FileValidator, error) {
	switch cfg.Validator.Type {
	case config.ValidatorAccept:
		return handlers.AcceptAll{}, nil
	case config.ValidatorMinAge:
		return handlers.NewMinAge(time.Duration(cfg.Validator.MinAgeMS) * time.Millisecond), nil
	}
	return nil, fmt.Errorf("unknown validator type %q", cfg.Validator.Type)
}

// buildProcessor returns nil for the "none" processor; files are then only
// moved.
func buildProcessor(cfg *config.Config) ports.FileProcessor {
	switch cfg.Processor.Type {
	case config.ProcessorDoneMarker:
		return handlers.DoneMarker{}
	case config.ProcessorCommand:
		return handlers.NewCommand(cfg.Processor.Command, time.Duration(cfg.Processor.TimeoutSeconds)*time.Second)
	}
	return nil
}
