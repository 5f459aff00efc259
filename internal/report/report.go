// Package report renders a harness.RunResult for people and for machines.
//
// Text output lists one line per rule, grouped, followed by a summary line:
//
//	index.html (pages)
//
//	structure
//	  ✓ STR-001 doctype is html
//	  ✗ STR-002 html element declares lang="en"
//	      expected lang of "html" = "en", got "fr"
//
//	Summary: 1 passed, 1 failed, 0 warnings, 2 total
//
// JSON output is a single indented object with the document, rule set,
// summary and outcomes, in rule order.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/roach88/pagecheck/internal/harness"
)

// Format names accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Status symbols used in text output.
const (
	SymbolPass = "✓"
	SymbolFail = "✗"
	SymbolWarn = "!"
)

// Options control text rendering.
type Options struct {
	// Color enables ANSI colors. Callers decide based on the destination
	// (terminal or not) and --no-color.
	Color bool

	// Quiet omits passing rules; the summary line is always written.
	Quiet bool
}

// palette holds the colors for one rendering. Each color is enabled or
// disabled explicitly so output does not depend on the global color.NoColor.
type palette struct {
	pass  *color.Color
	fail  *color.Color
	warn  *color.Color
	group *color.Color
	dim   *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		pass:  color.New(color.FgGreen),
		fail:  color.New(color.FgRed),
		warn:  color.New(color.FgYellow),
		group: color.New(color.Bold),
		dim:   color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{p.pass, p.fail, p.warn, p.group, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Write renders result in the named format.
func Write(w io.Writer, format string, result *harness.RunResult, opts Options) error {
	switch format {
	case FormatText, "":
		return WriteText(w, result, opts)
	case FormatJSON:
		return WriteJSON(w, result)
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
}

// WriteText renders result as grouped, human-readable lines.
func WriteText(w io.Writer, result *harness.RunResult, opts Options) error {
	p := newPalette(opts.Color)
	ew := &errWriter{w: w}

	header := result.Document
	if result.RuleSet != "" {
		header += fmt.Sprintf(" (%s)", result.RuleSet)
	}
	ew.printf("%s\n", header)

	group := "\x00"
	for _, o := range result.Outcomes {
		if opts.Quiet && o.Passed() {
			continue
		}
		if o.Group != group {
			group = o.Group
			if group != "" {
				ew.printf("\n%s\n", p.group.Sprint(group))
			} else {
				ew.printf("\n")
			}
		}

		switch o.Status {
		case harness.StatusPass:
			ew.printf("  %s %s %s\n", p.pass.Sprint(SymbolPass), o.RuleID, o.Name)
		case harness.StatusWarn:
			ew.printf("  %s %s %s\n", p.warn.Sprint(SymbolWarn), o.RuleID, o.Name)
			ew.printf("      %s\n", p.dim.Sprint(o.Message))
		default:
			ew.printf("  %s %s %s\n", p.fail.Sprint(SymbolFail), o.RuleID, o.Name)
			msg := o.Message
			if o.Fault {
				msg = "fault: " + msg
			}
			ew.printf("      %s\n", p.dim.Sprint(msg))
		}
	}

	ew.printf("\n%s\n", SummaryLine(result.Summary()))
	return ew.err
}

// SummaryLine formats the closing summary. Faults are counted as failures
// and called out separately when present.
func SummaryLine(s harness.Summary) string {
	line := fmt.Sprintf("Summary: %d passed, %d failed, %d warnings, %d total",
		s.Passed, s.Failed, s.Warned, s.Total)
	if s.Faults > 0 {
		line += fmt.Sprintf(" (%d faults)", s.Faults)
	}
	return line
}

// jsonReport is the machine-readable form of a run.
type jsonReport struct {
	Document string            `json:"document"`
	RuleSet  string            `json:"rule_set,omitempty"`
	Pass     bool              `json:"pass"`
	Summary  harness.Summary   `json:"summary"`
	Outcomes []harness.Outcome `json:"outcomes"`
}

// WriteJSON renders result as indented JSON. Markup characters in rule
// names and messages are written as-is.
func WriteJSON(w io.Writer, result *harness.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(jsonReport{
		Document: result.Document,
		RuleSet:  result.RuleSet,
		Pass:     result.Pass(),
		Summary:  result.Summary(),
		Outcomes: result.Outcomes,
	})
}

// errWriter remembers the first write error so rendering code can stay
// linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
