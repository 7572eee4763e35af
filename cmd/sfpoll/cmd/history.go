package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/brianly1003/sfpoll/internal/adapters/journal"
	"github.com/brianly1003/sfpoll/internal/domain"
	"github.com/spf13/cobra"
)

var (
	historyLimit   int
	historyOutcome string
	historyPath    string
	historyJSON    bool
)

// historyCmd lists journal entries.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently processed files from the journal",
	Long: `Show the newest entries of the processing journal.

Examples:
  sfpoll history
  sfpoll history --limit 100 --outcome failed
  sfpoll history --json`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show")
	historyCmd.Flags().StringVar(&historyOutcome, "outcome", "", "only show processed, failed or expired entries")
	historyCmd.Flags().StringVar(&historyPath, "path", "", "only show entries for this input path")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print entries as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	q := journal.Query{Limit: historyLimit, Path: historyPath}
	switch outcome := domain.Outcome(historyOutcome); outcome {
	case "", domain.OutcomeProcessed, domain.OutcomeFailed, domain.OutcomeExpired:
		q.Outcome = outcome
	default:
		return fmt.Errorf("unknown outcome %q", historyOutcome)
	}

	if _, err := os.Stat(cfg.Journal.Path); err != nil {
		return fmt.Errorf("no journal at %s (enable journal.enabled or pass --journal to poll)", cfg.Journal.Path)
	}

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer j.Close()

	ctx := context.Background()
	records, err := j.Recent(ctx, q)
	if err != nil {
		return err
	}

	if historyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tOUTCOME\tTOOK\tPATH\tDETAIL")
	for _, rec := range records {
		detail := rec.Error
		if detail == "" {
			detail = strings.Join(rec.Outputs, ", ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.RecordedAt.Format(time.DateTime),
			rec.Outcome,
			rec.Duration.Round(time.Millisecond),
			rec.Path,
			detail,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	summary, err := j.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nTotal: %d processed, %d failed, %d expired\n",
		summary[domain.OutcomeProcessed], summary[domain.OutcomeFailed], summary[domain.OutcomeExpired])
	return nil
}
