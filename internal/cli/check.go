package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/roach88/pagecheck/internal/dom"
	"github.com/roach88/pagecheck/internal/filelock"
	"github.com/roach88/pagecheck/internal/harness"
	"github.com/roach88/pagecheck/internal/report"
	"github.com/roach88/pagecheck/internal/store"
)

// DefaultPage is checked when no page argument is given.
const DefaultPage = "index.html"

// nowFunc stamps recorded runs. Tests replace it with a fixed clock.
var nowFunc = time.Now

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Rules  string // rule set file; empty means the built-in set
	Out    string // report file; empty means stdout
	Record string // history database; empty means do not record
	Quiet  bool   // omit passing rules from text output
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check [page]",
		Short: "Check a page against a rule set",
		Long: `Load the page (default: index.html), evaluate every rule and report
one outcome per rule followed by a summary.

Exit codes:
  0 - All rules passed (warnings allowed)
  1 - One or more rules failed
  2 - Command error (page not loadable, invalid rule set, etc.)

Examples:
  pagecheck check
  pagecheck check site/index.html --rules rules.yaml
  pagecheck check --format json --out report.json
  pagecheck check --record history.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			page := DefaultPage
			if len(args) == 1 {
				page = args[0]
			}
			return runCheck(cmd.Context(), opts, page, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Rules, "rules", "r", "", "rule set file (.yaml, .yml or .cue); default is the built-in set")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record the run in a SQLite history database")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "only list rules that did not pass")

	return cmd
}

func runCheck(ctx context.Context, opts *CheckOptions, page string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	set, err := loadRuleSet(opts.Rules)
	if err != nil {
		return jsonError(formatter, ErrCodeRuleSet, map[string]string{"path": opts.Rules},
			WrapExitError(ExitCommandError, "failed to load rule set", err))
	}

	startedAt := nowFunc()
	result, err := harness.Check(page, set)
	if err != nil {
		return jsonError(formatter, ErrCodeLoad, map[string]string{"path": page}, pageError(err))
	}

	slog.Debug("check complete",
		"page", page,
		"rule_set", set.Name,
		"rules", len(set.Rules),
		"failed", result.Summary().Failed,
	)

	if err := writeReport(ctx, opts, result, cmd.OutOrStdout()); err != nil {
		return jsonError(formatter, ErrCodeOutput, map[string]string{"path": opts.Out}, err)
	}

	if opts.Record != "" {
		if err := recordRun(ctx, opts.Record, result, startedAt); err != nil {
			return jsonError(formatter, ErrCodeDatabase, map[string]string{"path": opts.Record}, err)
		}
	}

	if !result.Pass() {
		s := result.Summary()
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d rules failed", s.Failed, s.Total))
	}
	return nil
}

// jsonError writes err as a JSON error envelope when the output format is
// json, then returns err unchanged.
func jsonError(f *OutputFormatter, code string, details any, err error) error {
	if f.Format != "json" {
		return err
	}
	if outErr := f.Error(code, err.Error(), details); outErr != nil {
		return outErr
	}
	return err
}

// loadRuleSet returns the rule set at path, or the built-in set.
func loadRuleSet(path string) (*harness.RuleSet, error) {
	if path == "" {
		return harness.DefaultRuleSet()
	}
	return harness.LoadRuleSet(path)
}

// pageError maps a load failure to a command error with a clear message.
func pageError(err error) error {
	var loadErr *dom.LoadError
	var parseErr *dom.ParseError
	switch {
	case errors.As(err, &loadErr):
		return WrapExitError(ExitCommandError, "failed to load page", err)
	case errors.As(err, &parseErr):
		return WrapExitError(ExitCommandError, "failed to parse page", err)
	default:
		return WrapExitError(ExitCommandError, "check failed", err)
	}
}

// writeReport renders the result to stdout, or atomically to --out.
func writeReport(ctx context.Context, opts *CheckOptions, result *harness.RunResult, stdout io.Writer) error {
	if opts.Out == "" {
		ropts := report.Options{Color: colorEnabled(stdout, opts.NoColor), Quiet: opts.Quiet}
		return report.Write(stdout, opts.Format, result, ropts)
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, opts.Format, result, report.Options{Quiet: opts.Quiet}); err != nil {
		return WrapExitError(ExitCommandError, "failed to render report", err)
	}
	if err := filelock.WriteFile(ctx, opts.Out, buf.Bytes()); err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}
	slog.Info("report written", "path", opts.Out, "bytes", buf.Len())
	return nil
}

// recordRun appends the result to the history database.
func recordRun(ctx context.Context, dbPath string, result *harness.RunResult, startedAt time.Time) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	rec, err := st.RecordRun(ctx, store.NewRunRecord(result, startedAt))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to record run", err)
	}
	slog.Info("run recorded", "id", rec.ID, "seq", rec.Seq, "db", dbPath)
	return nil
}

// colorEnabled reports whether text output to w should be colored:
// w must be a terminal, and neither --no-color nor NO_COLOR is set.
func colorEnabled(w io.Writer, noColor bool) bool {
	if noColor || color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
