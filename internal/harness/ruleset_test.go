package harness

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRuleSet(t *testing.T) {
	set, err := DefaultRuleSet()
	require.NoError(t, err)

	assert.Equal(t, "pages", set.Name)
	assert.Len(t, set.Rules, 50)

	idPattern := regexp.MustCompile(`^(STR|CNT|ACC|PRF|DEP)-\d{3}$`)
	groups := map[string]int{}
	seen := map[string]bool{}
	for _, r := range set.Rules {
		assert.Regexp(t, idPattern, r.ID)
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
		groups[r.Group]++
	}
	assert.Equal(t, map[string]int{
		"structure":     12,
		"content":       7,
		"accessibility": 10,
		"performance":   11,
		"deployment":    10,
	}, groups)
}

func TestLoadRuleSet_YAML(t *testing.T) {
	set, err := LoadRuleSet(filepath.Join("testdata", "rulesets", "minimal.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "minimal", set.Name)
	require.Len(t, set.Rules, 3)
	assert.Equal(t, TargetDoctype, set.Rules[0].Target)
	require.NotNil(t, set.Rules[1].Gte)
	assert.Equal(t, 1, *set.Rules[1].Gte)
	assert.Nil(t, set.Rules[1].Eq)
	assert.Equal(t, SeverityWarning, set.Rules[2].ResolvedSeverity())
	assert.Equal(t, SeverityError, set.Rules[0].ResolvedSeverity())
}

func TestLoadRuleSet_CUEMatchesYAML(t *testing.T) {
	fromYAML, err := LoadRuleSet(filepath.Join("testdata", "rulesets", "minimal.yaml"))
	require.NoError(t, err)
	fromCUE, err := LoadRuleSet(filepath.Join("testdata", "rulesets", "minimal.cue"))
	require.NoError(t, err)

	// The CUE file defaults group to "structure".
	require.Len(t, fromCUE.Rules, len(fromYAML.Rules))
	for i := range fromCUE.Rules {
		assert.Equal(t, "structure", fromCUE.Rules[i].Group)
		fromCUE.Rules[i].Group = fromYAML.Rules[i].Group
	}
	assert.Equal(t, fromYAML, fromCUE)
}

func TestLoadRuleSet_CUENotConcrete(t *testing.T) {
	_, err := LoadRuleSet(filepath.Join("testdata", "rulesets", "abstract.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not concrete")
}

func TestLoadRuleSet_UnknownFieldRejected(t *testing.T) {
	_, err := LoadRuleSet(filepath.Join("testdata", "rulesets", "typo.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selecter")
}

func TestLoadRuleSet_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadRuleSet(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read rule set")

	txt := filepath.Join(dir, "rules.txt")
	require.NoError(t, os.WriteFile(txt, []byte("name: x"), 0644))
	_, err = LoadRuleSet(txt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported rule set extension")
}

func TestParseRuleSetYAML_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "rules:\n  - {id: A, name: a, type: exists, selector: p}\n",
			wantErr: "name is required",
		},
		{
			name:    "empty rules",
			yaml:    "name: x\nrules: []\n",
			wantErr: "rules list is required",
		},
		{
			name:    "missing id",
			yaml:    "name: x\nrules:\n  - {name: a, type: exists, selector: p}\n",
			wantErr: "id is required",
		},
		{
			name:    "duplicate id",
			yaml:    "name: x\nrules:\n  - {id: A, name: a, type: exists, selector: p}\n  - {id: A, name: b, type: exists, selector: h1}\n",
			wantErr: `duplicate id "A"`,
		},
		{
			name:    "unknown type",
			yaml:    "name: x\nrules:\n  - {id: A, name: a, type: matches, selector: p}\n",
			wantErr: `unknown rule type "matches"`,
		},
		{
			name:    "bad selector",
			yaml:    "name: x\nrules:\n  - {id: A, name: a, type: exists, selector: 'p['}\n",
			wantErr: "compile selector",
		},
		{
			name:    "bad pattern",
			yaml:    "name: x\nrules:\n  - {id: A, name: a, type: contains, selector: p, pattern: '('}\n",
			wantErr: "invalid pattern",
		},
		{
			name:    "count without bounds",
			yaml:    "name: x\nrules:\n  - {id: A, name: a, type: count, selector: p}\n",
			wantErr: "at least one of eq",
		},
		{
			name:    "target not valid for type",
			yaml:    "name: x\nrules:\n  - {id: A, name: a, type: equals, target: file, paths: [CNAME], value: x}\n",
			wantErr: `target "file" is not valid for equals rules`,
		},
		{
			name:    "file without paths",
			yaml:    "name: x\nrules:\n  - {id: A, name: a, type: exists, target: file}\n",
			wantErr: "paths are required",
		},
		{
			name:    "unknown severity",
			yaml:    "name: x\nrules:\n  - {id: A, name: a, type: exists, selector: p, severity: info}\n",
			wantErr: `unknown severity "info"`,
		},
		{
			name:    "unknown filter",
			yaml:    "name: x\nrules:\n  - {id: A, name: a, type: count, selector: p, filter: empty, eq: 0}\n",
			wantErr: `unknown filter "empty"`,
		},
		{
			name:    "contains without needles",
			yaml:    "name: x\nrules:\n  - {id: A, name: a, type: contains, selector: p}\n",
			wantErr: "contains or pattern is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRuleSetYAML([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEmbeddedRuleSet_Missing(t *testing.T) {
	_, err := EmbeddedRuleSet("nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `embedded rule set "nope.yaml"`)
}
