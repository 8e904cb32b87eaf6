package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/langshake/shake-proof/internal/config"
	"github.com/langshake/shake-proof/internal/database"
	"github.com/langshake/shake-proof/internal/history"
	"github.com/langshake/shake-proof/internal/model"
	"github.com/langshake/shake-proof/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [domain]",
		Short: "Compare benchmark results with earlier runs",
		Long: `History compares the latest stored run of a domain with an earlier one.

It shows:
- whether the match rate improved or worsened
- per-phase duration and request deltas
- Merkle root changes
- pages that were added, removed, drifted or flipped their match outcome

Runs are stored by 'shakeproof bench' unless --no-save is given.

Examples:
  # Compare the latest two runs
  shakeproof history example.com

  # List stored runs of a domain
  shakeproof history --list example.com

  # Compare with a specific run
  shakeproof history --with-run-id 3f2a... example.com

  # Compare with the first run since a date
  shakeproof history --since 2026-01-01 example.com

  # List all benchmarked domains
  shakeproof history --list-domains`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List stored runs for the specified domain")
	cmd.Flags().BoolP("list-domains", "L", false,
		"List all benchmarked domains")
	cmd.Flags().StringP("with-run-id", "i", "",
		"Compare with a specific run (use --list to see run IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first run on or after this date (format: YYYY-MM-DD)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison in Markdown format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	domain    string
	list      bool
	listAll   bool
	withRunID string
	since     string
	json      bool
	markdown  bool
	dbDir     string
}

func parseHistoryFlags(cmd *cobra.Command, args []string) (*historyOptions, error) {
	flags := cmd.Flags()
	opts := &historyOptions{}

	var err error
	if opts.listAll, err = flags.GetBool("list-domains"); err != nil {
		return nil, err
	}
	if opts.list, err = flags.GetBool("list"); err != nil {
		return nil, err
	}
	if opts.withRunID, err = flags.GetString("with-run-id"); err != nil {
		return nil, err
	}
	if opts.since, err = flags.GetString("since"); err != nil {
		return nil, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	if opts.json && opts.markdown {
		return nil, config.ErrConflictingReportFormats
	}
	if opts.withRunID != "" && opts.since != "" {
		return nil, errors.New("--with-run-id and --since cannot be used together")
	}
	if opts.listAll {
		return opts, nil
	}

	if len(args) == 0 {
		return nil, errors.New("domain is required (use --list-domains to see benchmarked domains)")
	}
	// Results are stored under the normalized root.
	opts.domain, err = pipeline.NormalizeDomainRoot(args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid domain: %w", err)
	}
	return opts, nil
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	// Validate before opening the database so bad flags never touch it.
	opts, err := parseHistoryFlags(cmd, args)
	if err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case opts.listAll:
		return listDomains(ctx, out, db)
	case opts.list:
		return listRuns(ctx, out, db, opts.domain)
	default:
		return runComparison(ctx, out, db, opts)
	}
}

func listDomains(ctx context.Context, out io.Writer, db *database.BenchDB) error {
	domains, err := db.ListDomains(ctx)
	if err != nil {
		return fmt.Errorf("failed to list domains: %w", err)
	}

	if len(domains) == 0 {
		fmt.Fprintln(out, "No benchmarked domains found in the database.")
		fmt.Fprintln(out, "\nUse 'shakeproof bench <domain>' to benchmark a domain.")
		return nil
	}

	fmt.Fprintf(out, "Benchmarked domains (%d):\n\n", len(domains))
	for _, d := range domains {
		fmt.Fprintf(out, "  • %s\n", d)
	}
	fmt.Fprintln(out, "\nUse 'shakeproof history --list <domain>' to see the runs of a domain.")
	return nil
}

func listRuns(ctx context.Context, out io.Writer, db *database.BenchDB, domain string) error {
	runs, err := db.GetHistoryWithMetadata(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs found for %s\n", domain)
		fmt.Fprintln(out, "\nUse 'shakeproof bench' to benchmark this domain.")
		return nil
	}

	fmt.Fprintf(out, "Runs for %s (%d):\n\n", domain, len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %-9s  %s\n", "Run ID", "Date", "Matched", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))
	for _, meta := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %-9s  %s\n",
			meta.RunID,
			meta.StartedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d/%d", meta.MatchedPages, meta.TotalPages),
			runStatus(meta),
		)
	}

	fmt.Fprintln(out, "\nUse 'shakeproof history <domain>' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'shakeproof history --with-run-id <id> <domain>' to compare with a specific run.")
	return nil
}

func runStatus(meta database.RunMetadata) string {
	switch {
	case meta.Aborted:
		return "aborted"
	case meta.AllMatch:
		return "all match"
	case meta.FailedPages > 0:
		return fmt.Sprintf("%d failed", meta.FailedPages)
	default:
		return "mismatch"
	}
}

func runComparison(ctx context.Context, out io.Writer, db *database.BenchDB, opts *historyOptions) error {
	results, err := db.GetHistory(ctx, opts.domain)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no runs found for %s", opts.domain)
	}

	current := results[0]
	previous, err := selectPrevious(ctx, db, results, opts)
	if err != nil {
		return err
	}

	c := history.Compare(previous, current)
	switch {
	case opts.json:
		return history.WriteJSON(out, c)
	case opts.markdown:
		return history.WriteMarkdown(out, c)
	default:
		return history.WriteText(out, c)
	}
}

// selectPrevious picks the baseline run. results are newest first and
// results[0] is the current run.
func selectPrevious(ctx context.Context, db *database.BenchDB, results []*model.DomainBenchmarkResult, opts *historyOptions) (*model.DomainBenchmarkResult, error) {
	current := results[0]

	switch {
	case opts.withRunID != "":
		previous, err := db.GetResultByRunID(ctx, opts.withRunID)
		if err != nil {
			return nil, fmt.Errorf("failed to get run %s: %w", opts.withRunID, err)
		}
		if previous == nil {
			return nil, fmt.Errorf("run %s not found", opts.withRunID)
		}
		if previous.DomainRoot != opts.domain {
			return nil, fmt.Errorf("run %s belongs to %s, not %s", opts.withRunID, previous.DomainRoot, opts.domain)
		}
		return previous, nil

	case opts.since != "":
		since, err := time.ParseInLocation("2006-01-02", opts.since, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		for i := len(results) - 1; i >= 0; i-- {
			if !results[i].StartedAt.Before(since) {
				if results[i] == current {
					return nil, fmt.Errorf("only one run found since %s; at least 2 runs are required for comparison", opts.since)
				}
				return results[i], nil
			}
		}
		return nil, fmt.Errorf("no runs found since %s", opts.since)

	default:
		if len(results) < 2 {
			return nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(results))
		}
		return results[1], nil
	}
}
