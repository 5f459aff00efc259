package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pagecheck/internal/dom"
)

const canonicalHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>My CI/CD Test Site</title>
</head>
<body>
    <h1>🎉 Hello from GitHub Pages!</h1>
    <p>This is my first deployed website using GitHub Actions CI/CD.</p>
</body>
</html>
`

func intp(n int) *int { return &n }

func parseDoc(t *testing.T, content string) *dom.Document {
	t.Helper()
	doc, err := dom.Parse("index.html", []byte(content))
	require.NoError(t, err)
	return doc
}

func requireAssertionError(t *testing.T, err error) *AssertionError {
	t.Helper()
	require.Error(t, err)
	assertErr, ok := err.(*AssertionError)
	require.True(t, ok, "expected *AssertionError, got %T: %v", err, err)
	return assertErr
}

func TestAssertExists(t *testing.T) {
	doc := parseDoc(t, canonicalHTML)

	tests := []struct {
		name string
		rule Rule
		pass bool
	}{
		{"present", Rule{Selector: "h1"}, true},
		{"absent", Rule{Selector: "h2"}, false},
		{"scoped present", Rule{Scope: "body", Selector: "p"}, true},
		{"scoped absent", Rule{Scope: "head", Selector: "p"}, false},
		{"missing scope", Rule{Scope: "main", Selector: "p"}, false},
		{"attr present", Rule{Selector: "html", Attr: "lang"}, true},
		{"attr absent", Rule{Selector: "html", Attr: "dir"}, false},
		{"unique with one", Rule{Selector: "h1", Unique: true}, true},
		{"unique with two", Rule{Selector: "meta", Unique: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.rule
			r.ID, r.Name, r.Type = "T-1", tt.name, TypeExists
			err := checkRule(doc, &r)
			if tt.pass {
				assert.NoError(t, err)
			} else {
				requireAssertionError(t, err)
			}
		})
	}
}

func TestAssertExists_EmptyAttrValueDoesNotCount(t *testing.T) {
	doc := parseDoc(t, `<!DOCTYPE html><html lang=""><body><p>x</p></body></html>`)
	r := Rule{ID: "T-1", Name: "lang", Type: TypeExists, Selector: "html", Attr: "lang"}

	assertErr := requireAssertionError(t, checkRule(doc, &r))
	assert.Contains(t, assertErr.Expected, "lang attribute")
}

func TestAssertEquals(t *testing.T) {
	doc := parseDoc(t, canonicalHTML)

	tests := []struct {
		name string
		rule Rule
		pass bool
	}{
		{"doctype", Rule{Target: TargetDoctype, Value: "html"}, true},
		{"lang", Rule{Selector: "html", Attr: "lang", Value: "en"}, true},
		{"lang mismatch", Rule{Selector: "html", Attr: "lang", Value: "fr"}, false},
		{"missing attr", Rule{Selector: "html", Attr: "dir", Value: "ltr"}, false},
		{"title trimmed", Rule{Selector: "title", Value: "My CI/CD Test Site"}, true},
		{"title is exact", Rule{Selector: "title", Value: "My CI/CD Test"}, false},
		{"no element", Rule{Selector: "h2", Value: "x"}, false},
		{"scoped viewport", Rule{Scope: "head", Selector: `meta[name="viewport"]`, Attr: "content",
			Value: "width=device-width, initial-scale=1.0"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.rule
			r.ID, r.Name, r.Type = "T-1", tt.name, TypeEquals
			err := checkRule(doc, &r)
			if tt.pass {
				assert.NoError(t, err)
			} else {
				requireAssertionError(t, err)
			}
		})
	}
}

func TestAssertEquals_MissingDoctype(t *testing.T) {
	doc := parseDoc(t, `<html lang="en"><body></body></html>`)
	r := Rule{ID: "T-1", Name: "doctype", Type: TypeEquals, Target: TargetDoctype, Value: "html"}

	assertErr := requireAssertionError(t, checkRule(doc, &r))
	assert.Equal(t, "doctype declaration", assertErr.Expected)
	assert.Equal(t, "none", assertErr.Actual)
}

func TestAssertContains(t *testing.T) {
	doc := parseDoc(t, canonicalHTML)

	tests := []struct {
		name string
		rule Rule
		pass bool
	}{
		{"substrings", Rule{Selector: "p", Contains: []string{"first deployed website", "GitHub Actions CI/CD"}}, true},
		{"case sensitive", Rule{Selector: "p", Contains: []string{"github actions"}}, false},
		{"folded", Rule{Selector: "body", Fold: true, Contains: []string{"GITHUB PAGES", "ci/cd"}}, true},
		{"one missing", Rule{Selector: "body", Fold: true, Contains: []string{"hello", "cicd"}}, false},
		{"negated clean", Rule{Selector: "body", Fold: true, Negate: true, Contains: []string{"lorem ipsum", "todo"}}, true},
		{"negated hit", Rule{Selector: "body", Fold: true, Negate: true, Contains: []string{"hello"}}, false},
		{"emoji pattern", Rule{Selector: "h1", Pattern: `[\x{1F300}-\x{1F9FF}]`}, true},
		{"pattern miss", Rule{Selector: "p", Pattern: `[\x{1F300}-\x{1F9FF}]`}, false},
		{"attr", Rule{Selector: `meta[name="viewport"]`, Attr: "content", Contains: []string{"width=device-width"}}, true},
		{"source", Rule{Target: TargetSource, Contains: []string{"<!DOCTYPE html>"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.rule
			r.ID, r.Name, r.Type = "T-1", tt.name, TypeContains
			err := checkRule(doc, &r)
			if tt.pass {
				assert.NoError(t, err)
			} else {
				requireAssertionError(t, err)
			}
		})
	}
}

func TestAssertContains_FoldNormalizesUnicode(t *testing.T) {
	// Decomposed upper-case "E" + combining acute in the page,
	// precomposed lower-case "é" in the needle.
	doc := parseDoc(t, "<p>CAFE\u0301 AU LAIT</p>")
	r := Rule{ID: "T-1", Name: "fold", Type: TypeContains, Selector: "p", Fold: true,
		Contains: []string{"caf\u00e9", "au lait"}}

	assert.NoError(t, checkRule(doc, &r))
}

func TestAssertCount_Bounds(t *testing.T) {
	doc := parseDoc(t, canonicalHTML) // 8 elements

	tests := []struct {
		name string
		rule Rule
		pass bool
	}{
		{"eq", Rule{Selector: "meta", Eq: intp(2)}, true},
		{"eq miss", Rule{Selector: "meta", Eq: intp(1)}, false},
		{"gt exclusive", Rule{Selector: "*", Gt: intp(8)}, false},
		{"gte inclusive", Rule{Selector: "*", Gte: intp(8)}, true},
		{"lt exclusive", Rule{Selector: "*", Lt: intp(8)}, false},
		{"lte inclusive", Rule{Selector: "*", Lte: intp(8)}, true},
		{"range", Rule{Selector: "*", Gt: intp(5), Lt: intp(50)}, true},
		{"zero matches", Rule{Selector: "script[src]", Eq: intp(0)}, true},
		{"zero fails at least one", Rule{Selector: "h2", Gte: intp(1)}, false},
		{"scoped", Rule{Scope: "body", Selector: "h1, h2, h3, h4, h5, h6", Gt: intp(0)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.rule
			r.ID, r.Name, r.Type = "T-1", tt.name, TypeCount
			err := checkRule(doc, &r)
			if tt.pass {
				assert.NoError(t, err)
			} else {
				requireAssertionError(t, err)
			}
		})
	}
}

func TestAssertCount_BlankFilter(t *testing.T) {
	doc := parseDoc(t, `<body><h1>Title</h1><p>  </p><section></section><div></div></body>`)
	r := Rule{ID: "T-1", Name: "blank", Type: TypeCount, Filter: FilterBlank,
		Selector: "*:not(html, head, body, div)", Eq: intp(0)}

	assertErr := requireAssertionError(t, checkRule(doc, &r))
	assert.Equal(t, "2", assertErr.Actual)
}

func TestAssertSize(t *testing.T) {
	doc := parseDoc(t, canonicalHTML)

	tests := []struct {
		name string
		rule Rule
		pass bool
	}{
		{"source bytes", Rule{Target: TargetSource, Eq: intp(len(canonicalHTML))}, true},
		{"source range", Rule{Target: TargetSource, Gt: intp(100), Lt: intp(5000)}, true},
		{"trimmed title", Rule{Selector: "title", Trim: true, Eq: intp(18)}, true},
		// One rune for the emoji.
		{"heading chars", Rule{Selector: "h1", Eq: intp(26)}, true},
		{"body concise", Rule{Selector: "body", Gt: intp(50), Lt: intp(500)}, true},
		{"body too long", Rule{Selector: "body", Lt: intp(20)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.rule
			r.ID, r.Name, r.Type = "T-1", tt.name, TypeSize
			err := checkRule(doc, &r)
			if tt.pass {
				assert.NoError(t, err)
			} else {
				requireAssertionError(t, err)
			}
		})
	}
}

func TestFileTargets(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(page, []byte(canonicalHTML), 0644))

	doc, err := dom.Load(page)
	require.NoError(t, err)

	cname := Rule{ID: "T-1", Name: "cname", Type: TypeExists, Target: TargetFile,
		Paths: []string{"CNAME"}, Optional: true}
	workflows := Rule{ID: "T-2", Name: "workflows", Type: TypeCount, Target: TargetFile,
		Paths: []string{".github/workflows/*.yml", ".github/workflows/*.yaml"}, Optional: true, Gt: intp(0)}

	// Absent files and directories pass optional rules.
	assert.NoError(t, checkRule(doc, &cname))
	assert.NoError(t, checkRule(doc, &workflows))

	required := cname
	required.Optional = false
	requireAssertionError(t, checkRule(doc, &required))

	// Present but empty CNAME fails.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CNAME"), []byte("\n"), 0644))
	requireAssertionError(t, checkRule(doc, &cname))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CNAME"), []byte("pages.example.com\n"), 0644))
	assert.NoError(t, checkRule(doc, &cname))

	// Empty workflow directory fails, one workflow passes.
	wfDir := filepath.Join(dir, ".github", "workflows")
	require.NoError(t, os.MkdirAll(wfDir, 0755))
	requireAssertionError(t, checkRule(doc, &workflows))
	require.NoError(t, os.WriteFile(filepath.Join(wfDir, "deploy.yaml"), []byte("on: push\n"), 0644))
	assert.NoError(t, checkRule(doc, &workflows))
}

func TestCheckRule_InvalidSelectorIsFault(t *testing.T) {
	doc := parseDoc(t, canonicalHTML)
	r := Rule{ID: "T-1", Name: "bad", Type: TypeExists, Selector: "meta["}

	err := checkRule(doc, &r)
	require.Error(t, err)
	_, isAssertion := err.(*AssertionError)
	assert.False(t, isAssertion)
}

func TestAssertionError_Message(t *testing.T) {
	err := &AssertionError{Type: TypeEquals, Expected: `lang of "html" = "en"`, Actual: `"fr"`}
	assert.Equal(t, `expected lang of "html" = "en", got "fr"`, err.Error())
}
