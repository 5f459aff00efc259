package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// snapshot is the golden-file form of a RunResult. It omits the document
// path so fixtures loaded from temp directories compare equal.
type snapshot struct {
	RuleSet  string    `json:"rule_set,omitempty"`
	Summary  Summary   `json:"summary"`
	Outcomes []Outcome `json:"outcomes"`
}

// MarshalSnapshot renders a result as indented JSON for golden comparison.
func MarshalSnapshot(result *RunResult) ([]byte, error) {
	snap := snapshot{
		RuleSet:  result.RuleSet,
		Summary:  result.Summary(),
		Outcomes: result.Outcomes,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// AssertGolden compares a result against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *RunResult) {
	t.Helper()

	data, err := MarshalSnapshot(result)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
