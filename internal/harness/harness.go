package harness

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/pagecheck/internal/dom"
)

// Evaluate runs every rule against doc in order and returns one outcome
// per rule.
//
// Rules are independent: a failing or faulting rule never stops the run
// and never affects another rule's outcome. doc is only read.
func Evaluate(doc *dom.Document, rules []Rule) *RunResult {
	result := NewRunResult(doc.Path(), "")
	for i := range rules {
		o := evaluateOne(doc, &rules[i])
		slog.Debug("rule evaluated",
			"rule", o.RuleID,
			"status", o.Status,
			"fault", o.Fault,
		)
		result.Add(o)
	}
	return result
}

// EvaluateSet runs a rule set against doc.
func EvaluateSet(doc *dom.Document, set *RuleSet) *RunResult {
	result := Evaluate(doc, set.Rules)
	result.RuleSet = set.Name
	return result
}

// evaluateOne turns a rule check into an outcome. Panics inside a check
// are recovered and reported as faults.
func evaluateOne(doc *dom.Document, r *Rule) (o Outcome) {
	o = Outcome{
		RuleID: r.ID,
		Name:   r.Name,
		Group:  r.Group,
		Status: StatusPass,
	}

	defer func() {
		if p := recover(); p != nil {
			o.Status = StatusFail
			o.Fault = true
			o.Message = fmt.Sprintf("internal fault: %v", p)
			slog.Warn("rule panicked", "rule", r.ID, "panic", p)
		}
	}()

	err := checkRule(doc, r)
	if err == nil {
		return o
	}

	var assertErr *AssertionError
	if !errors.As(err, &assertErr) {
		o.Fault = true
	}
	o.Message = err.Error()
	if !o.Fault && r.ResolvedSeverity() == SeverityWarning {
		o.Status = StatusWarn
	} else {
		o.Status = StatusFail
	}
	return o
}

// Check runs the full pipeline: load the page, evaluate the rule set,
// release the document.
//
// Load errors (*dom.LoadError, *dom.ParseError) are returned as-is and no
// result is produced. Rule failures are reported in the result only.
func Check(pagePath string, set *RuleSet) (*RunResult, error) {
	doc, err := dom.Load(pagePath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	slog.Debug("document loaded", "path", pagePath, "bytes", len(doc.Source()))
	return EvaluateSet(doc, set), nil
}
