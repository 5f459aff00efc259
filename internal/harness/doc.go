// Package harness evaluates declarative rules against a loaded page.
//
// # Rule Format
//
// Rule sets are YAML (or CUE) files:
//
//	name: pages
//	rules:
//	  - id: STR-005
//	    name: title is "My CI/CD Test Site"
//	    type: equals
//	    selector: title
//	    value: My CI/CD Test Site
//
// # Rule Types
//
// Five predicate shapes are supported:
//
//   - exists: an element (or attribute, or file) is present, optionally exactly once
//   - equals: an attribute value, trimmed text or the doctype equals a literal
//   - contains: substrings or a pattern appear (or, negated, do not appear)
//   - count: the number of matches falls within bounds
//   - size: the byte length of the source or character length of text falls within bounds
//
// Bounds use gt/lt (exclusive), gte/lte (inclusive) and eq.
//
// # Evaluation
//
// Evaluate runs rules in order and yields exactly one Outcome per rule.
// A rule that cannot be evaluated (invalid selector, internal panic) is
// recorded as a failed outcome with Fault set; the run always completes.
// Rules with severity "warning" are reported as warnings and do not fail
// the run.
//
// The document is never modified, so evaluating the same rules twice
// yields identical outcomes.
//
// # Usage
//
//	set, err := harness.DefaultRuleSet()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Check("index.html", set)
//	if err != nil {
//	    log.Fatal(err) // page could not be loaded
//	}
//	if !result.Pass() {
//	    for _, o := range result.Failures() {
//	        log.Println(o.RuleID, o.Message)
//	    }
//	}
package harness
