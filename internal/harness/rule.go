package harness

import (
	"fmt"
	"regexp"

	"github.com/roach88/pagecheck/internal/dom"
)

// Rule type constants. Each names one predicate shape.
const (
	TypeExists   = "exists"
	TypeEquals   = "equals"
	TypeContains = "contains"
	TypeCount    = "count"
	TypeSize     = "size"
)

// Target constants select what a rule inspects.
const (
	TargetElement = "element" // elements matching Selector
	TargetAttr    = "attr"    // attribute Attr of the first match
	TargetText    = "text"    // aggregate text of the first match
	TargetDoctype = "doctype" // doctype name
	TargetSource  = "source"  // raw file content
	TargetFile    = "file"    // files next to the page, matched by Paths
)

// Severity constants. A failing warning rule does not fail the run.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// FilterBlank restricts count rules to elements with no trimmed text.
const FilterBlank = "blank"

// Rule is one declarative check against a document.
// Rules are plain data: they carry no state and never modify the document.
type Rule struct {
	// ID uniquely identifies the rule within a set (e.g. "STR-002").
	ID string `yaml:"id" json:"id"`

	// Name describes what the rule verifies.
	Name string `yaml:"name" json:"name"`

	// Group is a free-form category used for reporting.
	Group string `yaml:"group,omitempty" json:"group,omitempty"`

	// Type is one of the Type* constants.
	Type string `yaml:"type" json:"type"`

	// Target is one of the Target* constants. When empty it is derived
	// from Type and Attr, see Rule.ResolvedTarget.
	Target string `yaml:"target,omitempty" json:"target,omitempty"`

	// Selector is a CSS selector. Empty means the document element.
	Selector string `yaml:"selector,omitempty" json:"selector,omitempty"`

	// Scope is a CSS selector for the subtree the selector is evaluated in.
	// The first scope match is used; an absent scope fails the rule.
	Scope string `yaml:"scope,omitempty" json:"scope,omitempty"`

	// Attr names the attribute read by attr targets.
	Attr string `yaml:"attr,omitempty" json:"attr,omitempty"`

	// Value is the literal compared by equals rules.
	Value string `yaml:"value,omitempty" json:"value,omitempty"`

	// Contains lists substrings for contains rules.
	Contains []string `yaml:"contains,omitempty" json:"contains,omitempty"`

	// Pattern is a regular expression for contains rules.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`

	// Fold applies Unicode case folding before containment checks.
	Fold bool `yaml:"fold,omitempty" json:"fold,omitempty"`

	// Negate inverts contains rules: none of the substrings may appear.
	Negate bool `yaml:"negate,omitempty" json:"negate,omitempty"`

	// Trim trims surrounding whitespace from text before size checks.
	// Equality on text always trims.
	Trim bool `yaml:"trim,omitempty" json:"trim,omitempty"`

	// Unique makes exists rules require exactly one match.
	Unique bool `yaml:"unique,omitempty" json:"unique,omitempty"`

	// Filter narrows count rules (FilterBlank).
	Filter string `yaml:"filter,omitempty" json:"filter,omitempty"`

	// Paths are glob patterns relative to the page directory (file target).
	Paths []string `yaml:"paths,omitempty" json:"paths,omitempty"`

	// Optional makes file rules pass when the first path's directory
	// (count) or the file itself (exists) is absent.
	Optional bool `yaml:"optional,omitempty" json:"optional,omitempty"`

	// Severity is SeverityError (default) or SeverityWarning.
	Severity string `yaml:"severity,omitempty" json:"severity,omitempty"`

	// Bounds for count and size rules. Gt/Lt are exclusive, Gte/Lte inclusive.
	Eq  *int `yaml:"eq,omitempty" json:"eq,omitempty"`
	Gt  *int `yaml:"gt,omitempty" json:"gt,omitempty"`
	Gte *int `yaml:"gte,omitempty" json:"gte,omitempty"`
	Lt  *int `yaml:"lt,omitempty" json:"lt,omitempty"`
	Lte *int `yaml:"lte,omitempty" json:"lte,omitempty"`
}

// ResolvedTarget returns Target, or the default target for the rule type.
func (r *Rule) ResolvedTarget() string {
	if r.Target != "" {
		return r.Target
	}
	switch r.Type {
	case TypeEquals, TypeContains:
		if r.Attr != "" {
			return TargetAttr
		}
		return TargetText
	case TypeSize:
		return TargetText
	default:
		return TargetElement
	}
}

// ResolvedSeverity returns Severity, defaulting to SeverityError.
func (r *Rule) ResolvedSeverity() string {
	if r.Severity == "" {
		return SeverityError
	}
	return r.Severity
}

func (r *Rule) hasBounds() bool {
	return r.Eq != nil || r.Gt != nil || r.Gte != nil || r.Lt != nil || r.Lte != nil
}

// validTargets lists the targets each rule type accepts.
var validTargets = map[string][]string{
	TypeExists:   {TargetElement, TargetFile},
	TypeEquals:   {TargetAttr, TargetText, TargetDoctype},
	TypeContains: {TargetAttr, TargetText, TargetSource},
	TypeCount:    {TargetElement, TargetFile},
	TypeSize:     {TargetText, TargetSource},
}

// ValidateRules checks a rule list for structural errors before evaluation.
// Returns the first problem found, prefixed with the rule index.
func ValidateRules(rules []Rule) error {
	seen := make(map[string]int, len(rules))
	for i := range rules {
		r := &rules[i]
		if r.ID == "" {
			return fmt.Errorf("rules[%d]: id is required", i)
		}
		if prev, dup := seen[r.ID]; dup {
			return fmt.Errorf("rules[%d]: duplicate id %q (first at rules[%d])", i, r.ID, prev)
		}
		seen[r.ID] = i
		if err := validateRule(r); err != nil {
			return fmt.Errorf("rules[%d] (%s): %w", i, r.ID, err)
		}
	}
	return nil
}

// validateRule validates a single rule based on its type.
func validateRule(r *Rule) error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}

	targets, ok := validTargets[r.Type]
	if !ok {
		if r.Type == "" {
			return fmt.Errorf("type is required")
		}
		return fmt.Errorf("unknown rule type %q", r.Type)
	}

	target := r.ResolvedTarget()
	if !containsString(targets, target) {
		return fmt.Errorf("target %q is not valid for %s rules", target, r.Type)
	}

	switch r.ResolvedSeverity() {
	case SeverityError, SeverityWarning:
	default:
		return fmt.Errorf("unknown severity %q", r.Severity)
	}

	for _, sel := range []string{r.Selector, r.Scope} {
		if sel == "" {
			continue
		}
		if err := dom.CompileSelector(sel); err != nil {
			return err
		}
	}

	if target == TargetFile && len(r.Paths) == 0 {
		return fmt.Errorf("paths are required for file targets")
	}
	if target == TargetAttr && r.Attr == "" {
		return fmt.Errorf("attr is required for attr targets")
	}

	switch r.Type {
	case TypeContains:
		if len(r.Contains) == 0 && r.Pattern == "" {
			return fmt.Errorf("contains or pattern is required for contains rules")
		}
		if r.Pattern != "" {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				return fmt.Errorf("invalid pattern: %w", err)
			}
		}
	case TypeCount, TypeSize:
		if !r.hasBounds() {
			return fmt.Errorf("at least one of eq, gt, gte, lt, lte is required for %s rules", r.Type)
		}
		if r.Filter != "" && r.Filter != FilterBlank {
			return fmt.Errorf("unknown filter %q", r.Filter)
		}
	}

	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
