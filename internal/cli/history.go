package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pagecheck/internal/harness"
	"github.com/roach88/pagecheck/internal/report"
	"github.com/roach88/pagecheck/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	RunID    string
	RuleID   string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded check runs",
		Long: `Show runs recorded with "pagecheck check --record".

Lists the most recent runs, newest first. With --run, shows every outcome
of one run. With --rule, shows one rule's status across recent runs.

Examples:
  pagecheck history --db history.db
  pagecheck history --db history.db --limit 5 --format json
  pagecheck history --db history.db --run 0192f0c8-...
  pagecheck history --db history.db --rule STR-002`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of runs to show (0 for all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the outcomes of one run")
	cmd.Flags().StringVar(&opts.RuleID, "rule", "", "show one rule's status across runs")
	cmd.MarkFlagsMutuallyExclusive("run", "rule")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Open would create an empty database; a typo should not.
	details := map[string]string{"path": opts.Database}
	if _, err := os.Stat(opts.Database); err != nil {
		return jsonError(formatter, ErrCodeDatabase, details,
			WrapExitError(ExitCommandError, "database not found", err))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return jsonError(formatter, ErrCodeDatabase, details,
			WrapExitError(ExitCommandError, "failed to open database", err))
	}
	defer st.Close()

	switch {
	case opts.RunID != "":
		return showRun(ctx, st, opts, formatter, cmd.OutOrStdout())
	case opts.RuleID != "":
		return showRuleHistory(ctx, st, opts, formatter, cmd.OutOrStdout())
	default:
		return listRuns(ctx, st, opts, formatter, cmd.OutOrStdout())
	}
}

func listRuns(ctx context.Context, st *store.Store, opts *HistoryOptions, f *OutputFormatter, w io.Writer) error {
	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		return f.Success(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tSTARTED\tDOCUMENT\tPASSED\tFAILED\tWARNED\tRESULT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.Seq,
			r.ID,
			r.StartedAt.UTC().Format(time.RFC3339),
			r.Document,
			r.Summary.Passed,
			r.Summary.Failed,
			r.Summary.Warned,
			passLabel(r.Pass()),
		)
	}
	return tw.Flush()
}

func showRun(ctx context.Context, st *store.Store, opts *HistoryOptions, f *OutputFormatter, w io.Writer) error {
	rec, err := st.Run(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return WrapExitError(ExitCommandError, "unknown run", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if opts.Format == "json" {
		return f.Success(rec)
	}

	fmt.Fprintf(w, "Run %s (#%d) at %s\n", rec.ID, rec.Seq, rec.StartedAt.UTC().Format(time.RFC3339))
	result := harness.NewRunResult(rec.Document, rec.RuleSet)
	for _, o := range rec.Outcomes {
		result.Add(o)
	}
	return report.WriteText(w, result, report.Options{Color: colorEnabled(w, opts.NoColor)})
}

func showRuleHistory(ctx context.Context, st *store.Store, opts *HistoryOptions, f *OutputFormatter, w io.Writer) error {
	history, err := st.RuleHistory(ctx, opts.RuleID, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read rule history", err)
	}

	if opts.Format == "json" {
		return f.Success(history)
	}

	if len(history) == 0 {
		fmt.Fprintf(w, "No recorded outcomes for %s.\n", opts.RuleID)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tMESSAGE")
	for _, h := range history {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			h.RunID,
			h.StartedAt.UTC().Format(time.RFC3339),
			h.Status,
			dash(h.Message),
		)
	}
	return tw.Flush()
}

func passLabel(pass bool) string {
	if pass {
		return "pass"
	}
	return "fail"
}
