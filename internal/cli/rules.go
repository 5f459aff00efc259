package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/pagecheck/internal/harness"
)

// RulesOptions holds flags for the rules command.
type RulesOptions struct {
	*RootOptions
	Rules string
	Group string
}

// RulesListing is the JSON payload of the rules command.
type RulesListing struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Total       int            `json:"total"`
	Rules       []harness.Rule `json:"rules"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List and validate a rule set",
		Long: `Load a rule set, validate it and list its rules.

Without --rules the built-in set is listed. A rule set that fails
validation exits with code 2 and reports the first problem.

Examples:
  pagecheck rules
  pagecheck rules --rules rules.cue
  pagecheck rules --group accessibility --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Rules, "rules", "r", "", "rule set file (.yaml, .yml or .cue); default is the built-in set")
	cmd.Flags().StringVar(&opts.Group, "group", "", "only list rules in this group")

	return cmd
}

func runRules(opts *RulesOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	set, err := loadRuleSet(opts.Rules)
	if err != nil {
		return jsonError(formatter, ErrCodeRuleSet, map[string]string{"path": opts.Rules},
			WrapExitError(ExitCommandError, "invalid rule set", err))
	}

	rules := set.Rules
	if opts.Group != "" {
		rules = filterGroup(rules, opts.Group)
	}
	formatter.VerboseLog("Loaded rule set %q with %d rule(s)", set.Name, len(set.Rules))

	if opts.Format == "json" {
		return formatter.Success(RulesListing{
			Name:        set.Name,
			Description: set.Description,
			Total:       len(rules),
			Rules:       rules,
		})
	}

	return outputRulesText(cmd.OutOrStdout(), set, rules)
}

func filterGroup(rules []harness.Rule, group string) []harness.Rule {
	out := []harness.Rule{}
	for _, r := range rules {
		if r.Group == group {
			out = append(out, r)
		}
	}
	return out
}

func outputRulesText(w io.Writer, set *harness.RuleSet, rules []harness.Rule) error {
	fmt.Fprintf(w, "%s: %d rule(s)\n", set.Name, len(rules))
	if set.Description != "" {
		fmt.Fprintf(w, "%s\n", set.Description)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGROUP\tTYPE\tTARGET\tSEVERITY\tNAME")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			dash(r.Group),
			r.Type,
			r.ResolvedTarget(),
			r.ResolvedSeverity(),
			r.Name,
		)
	}
	return tw.Flush()
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
