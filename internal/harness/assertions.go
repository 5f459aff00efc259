package harness

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/pagecheck/internal/dom"
)

// AssertionError is returned when a rule's predicate does not hold.
// Any other error returned while evaluating a rule is a fault.
type AssertionError struct {
	Type     string // Rule type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("expected %s, got %s", e.Expected, e.Actual)
}

func fail(r *Rule, expected, actual string) error {
	return &AssertionError{Type: r.Type, Expected: expected, Actual: actual}
}

// queryer is implemented by both *dom.Document and *dom.Element.
type queryer interface {
	QueryAll(selector string) ([]*dom.Element, error)
}

// checkRule evaluates one rule. Returns nil when the predicate holds,
// *AssertionError when it does not, and any other error on a fault.
func checkRule(doc *dom.Document, r *Rule) error {
	if err := validateRule(r); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	switch r.Type {
	case TypeExists:
		return assertExists(doc, r)
	case TypeEquals:
		return assertEquals(doc, r)
	case TypeContains:
		return assertContains(doc, r)
	case TypeCount:
		return assertCount(doc, r)
	case TypeSize:
		return assertSize(doc, r)
	default:
		return fmt.Errorf("unknown rule type %q", r.Type)
	}
}

// assertExists checks that at least one (or, with Unique, exactly one)
// element matches. With Attr set, only elements carrying a non-empty
// value for that attribute count.
func assertExists(doc *dom.Document, r *Rule) error {
	if r.ResolvedTarget() == TargetFile {
		return assertFilesExist(doc, r)
	}

	els, err := matches(doc, r)
	if err != nil {
		return err
	}
	if r.Attr != "" {
		els = withAttr(els, r.Attr)
	}

	what := describeSelector(r)
	if r.Attr != "" {
		what += fmt.Sprintf(" with %s attribute", r.Attr)
	}

	if len(els) == 0 {
		return fail(r, what, "none")
	}
	if r.Unique && len(els) != 1 {
		return fail(r, "exactly one "+what, fmt.Sprintf("%d", len(els)))
	}
	return nil
}

// assertEquals compares an attribute value, trimmed text or doctype name
// against a literal.
func assertEquals(doc *dom.Document, r *Rule) error {
	s, err := stringTarget(doc, r)
	if err != nil {
		return err
	}
	if r.ResolvedTarget() == TargetText {
		s = strings.TrimSpace(s)
	}
	if s != r.Value {
		return fail(r, fmt.Sprintf("%s = %q", describeTarget(r), r.Value), fmt.Sprintf("%q", s))
	}
	return nil
}

// assertContains checks substring and pattern presence (or absence, with
// Negate) in the target string.
func assertContains(doc *dom.Document, r *Rule) error {
	s, err := stringTarget(doc, r)
	if err != nil {
		return err
	}

	haystack := s
	if r.Fold {
		haystack = foldString(s)
	}

	var missing, found []string
	for _, needle := range r.Contains {
		n := needle
		if r.Fold {
			n = foldString(needle)
		}
		if strings.Contains(haystack, n) {
			found = append(found, needle)
		} else {
			missing = append(missing, needle)
		}
	}

	if r.Pattern != "" {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("compile pattern: %w", err)
		}
		if re.MatchString(s) {
			found = append(found, "/"+r.Pattern+"/")
		} else {
			missing = append(missing, "/"+r.Pattern+"/")
		}
	}

	target := describeTarget(r)
	if r.Negate {
		if len(found) > 0 {
			return fail(r, fmt.Sprintf("%s to contain none of %s", target, quoteAll(found)), "found "+quoteAll(found))
		}
		return nil
	}
	if len(missing) > 0 {
		return fail(r, fmt.Sprintf("%s to contain %s", target, quoteAll(missing)), fmt.Sprintf("%q", truncate(s, 80)))
	}
	return nil
}

// assertCount checks the number of matching elements (or files) against
// the rule bounds.
func assertCount(doc *dom.Document, r *Rule) error {
	if r.ResolvedTarget() == TargetFile {
		return assertFileCount(doc, r)
	}

	els, err := matches(doc, r)
	if err != nil {
		return err
	}
	if r.Filter == FilterBlank {
		els = blank(els)
	}
	return checkBounds(r, "count of "+describeSelector(r), len(els))
}

// assertSize checks the byte length of the source or the character length
// of an element's text.
func assertSize(doc *dom.Document, r *Rule) error {
	if r.ResolvedTarget() == TargetSource {
		return checkBounds(r, "source size in bytes", len(doc.Source()))
	}

	s, err := stringTarget(doc, r)
	if err != nil {
		return err
	}
	if r.Trim {
		s = strings.TrimSpace(s)
	}
	return checkBounds(r, "text length of "+describeSelector(r), utf8.RuneCountInString(s))
}

// checkBounds verifies n against every bound set on the rule.
func checkBounds(r *Rule, what string, n int) error {
	var want []string
	ok := true
	if r.Eq != nil {
		want = append(want, fmt.Sprintf("== %d", *r.Eq))
		ok = ok && n == *r.Eq
	}
	if r.Gt != nil {
		want = append(want, fmt.Sprintf("> %d", *r.Gt))
		ok = ok && n > *r.Gt
	}
	if r.Gte != nil {
		want = append(want, fmt.Sprintf(">= %d", *r.Gte))
		ok = ok && n >= *r.Gte
	}
	if r.Lt != nil {
		want = append(want, fmt.Sprintf("< %d", *r.Lt))
		ok = ok && n < *r.Lt
	}
	if r.Lte != nil {
		want = append(want, fmt.Sprintf("<= %d", *r.Lte))
		ok = ok && n <= *r.Lte
	}
	if !ok {
		return fail(r, what+" "+strings.Join(want, " and "), fmt.Sprintf("%d", n))
	}
	return nil
}

// searchRoot returns the subtree named by the rule scope, or the document.
func searchRoot(doc *dom.Document, r *Rule) (queryer, *dom.Element, error) {
	if r.Scope == "" {
		return doc, nil, nil
	}
	scopes, err := doc.QueryAll(r.Scope)
	if err != nil {
		return nil, nil, err
	}
	if len(scopes) == 0 {
		return nil, nil, fail(r, fmt.Sprintf("scope %q", r.Scope), "none")
	}
	return scopes[0], scopes[0], nil
}

// matches returns the elements the rule selects. An empty selector selects
// the scope element, or the document element when there is no scope.
func matches(doc *dom.Document, r *Rule) ([]*dom.Element, error) {
	root, scopeEl, err := searchRoot(doc, r)
	if err != nil {
		return nil, err
	}
	if r.Selector == "" {
		if scopeEl != nil {
			return []*dom.Element{scopeEl}, nil
		}
		if el := doc.Root(); el != nil {
			return []*dom.Element{el}, nil
		}
		return nil, nil
	}
	return root.QueryAll(r.Selector)
}

// stringTarget extracts the string a rule compares against.
func stringTarget(doc *dom.Document, r *Rule) (string, error) {
	switch target := r.ResolvedTarget(); target {
	case TargetSource:
		return string(doc.Source()), nil
	case TargetDoctype:
		name, ok := doc.Doctype()
		if !ok {
			return "", fail(r, "doctype declaration", "none")
		}
		return name, nil
	case TargetAttr, TargetText:
		els, err := matches(doc, r)
		if err != nil {
			return "", err
		}
		if len(els) == 0 {
			return "", fail(r, describeSelector(r), "none")
		}
		el := els[0]
		if target == TargetText {
			return el.Text(), nil
		}
		v, ok := el.Attr(r.Attr)
		if !ok {
			return "", fail(r, fmt.Sprintf("%s attribute on %s", r.Attr, describeSelector(r)), "missing")
		}
		return v, nil
	default:
		return "", fmt.Errorf("target %q has no string value", target)
	}
}

// assertFilesExist checks that every file matched by Paths is non-empty.
func assertFilesExist(doc *dom.Document, r *Rule) error {
	files, err := globFiles(doc.Dir(), r.Paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		if r.Optional {
			return nil
		}
		return fail(r, "file matching "+strings.Join(r.Paths, ", "), "none")
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			rel, _ := filepath.Rel(doc.Dir(), f)
			return fail(r, rel+" to be non-empty", "empty file")
		}
	}
	return nil
}

// assertFileCount counts files matched by Paths. With Optional, a missing
// directory for the first path passes.
func assertFileCount(doc *dom.Document, r *Rule) error {
	if r.Optional {
		dir := filepath.Join(doc.Dir(), filepath.Dir(r.Paths[0]))
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	files, err := globFiles(doc.Dir(), r.Paths)
	if err != nil {
		return err
	}
	return checkBounds(r, "count of files matching "+strings.Join(r.Paths, ", "), len(files))
}

// globFiles expands patterns under base, deduplicated and sorted.
func globFiles(base string, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, p := range patterns {
		hits, err := filepath.Glob(filepath.Join(base, p))
		if err != nil {
			return nil, fmt.Errorf("invalid path pattern %q: %w", p, err)
		}
		for _, h := range hits {
			info, err := os.Stat(h)
			if err != nil || info.IsDir() || seen[h] {
				continue
			}
			seen[h] = true
			files = append(files, h)
		}
	}
	sort.Strings(files)
	return files, nil
}

func withAttr(els []*dom.Element, name string) []*dom.Element {
	var out []*dom.Element
	for _, el := range els {
		if v, ok := el.Attr(name); ok && v != "" {
			out = append(out, el)
		}
	}
	return out
}

func blank(els []*dom.Element) []*dom.Element {
	var out []*dom.Element
	for _, el := range els {
		if strings.TrimSpace(el.Text()) == "" {
			out = append(out, el)
		}
	}
	return out
}

// foldString normalizes s to NFC and applies full Unicode case folding.
func foldString(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

func describeSelector(r *Rule) string {
	switch {
	case r.Selector != "" && r.Scope != "":
		return fmt.Sprintf("%q in %q", r.Selector, r.Scope)
	case r.Selector != "":
		return fmt.Sprintf("%q", r.Selector)
	case r.Scope != "":
		return fmt.Sprintf("%q", r.Scope)
	default:
		return "document element"
	}
}

func describeTarget(r *Rule) string {
	switch r.ResolvedTarget() {
	case TargetAttr:
		return fmt.Sprintf("%s of %s", r.Attr, describeSelector(r))
	case TargetText:
		return "text of " + describeSelector(r)
	case TargetDoctype:
		return "doctype"
	case TargetSource:
		return "source"
	default:
		return describeSelector(r)
	}
}

func quoteAll(items []string) string {
	q := make([]string, len(items))
	for i, s := range items {
		q[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(q, ", ")
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
