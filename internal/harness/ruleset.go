package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pagecheck/rules"
)

// RuleSet is an ordered, named list of rules.
//
// Rule sets are written in YAML:
//
//	name: pages
//	description: "Checks for the published page"
//	rules:
//	  - id: STR-002
//	    name: html element declares lang="en"
//	    type: equals
//	    selector: html
//	    attr: lang
//	    value: en
//
// or in CUE with the same field names.
type RuleSet struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Rules       []Rule `yaml:"rules" json:"rules"`
}

// Validate checks that the set is named and its rules are well formed.
func (s *RuleSet) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Rules) == 0 {
		return fmt.Errorf("rules list is required and must be non-empty")
	}
	return ValidateRules(s.Rules)
}

// LoadRuleSet reads a rule set from a .yaml, .yml or .cue file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or fails validation.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set: %w", err)
	}

	var set *RuleSet
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		set, err = ParseRuleSetYAML(data)
	case ".cue":
		set, err = ParseRuleSetCUE(path, data)
	default:
		return nil, fmt.Errorf("unsupported rule set extension %q (want .yaml, .yml or .cue)", ext)
	}
	if err != nil {
		return nil, err
	}
	return set, nil
}

// ParseRuleSetYAML decodes and validates a YAML rule set.
func ParseRuleSetYAML(data []byte) (*RuleSet, error) {
	// Strict field validation catches typos like "selecter:"
	var set RuleSet
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule set: %w", err)
	}
	return &set, nil
}

// ParseRuleSetCUE compiles a CUE rule set and decodes its concrete value.
// filename is used for error positions only.
func ParseRuleSetCUE(filename string, data []byte) (*RuleSet, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE rule set is not concrete: %w", err)
	}

	var set RuleSet
	if err := value.Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}

	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule set: %w", err)
	}
	return &set, nil
}

// DefaultRuleSet returns the built-in rule set for the published page.
func DefaultRuleSet() (*RuleSet, error) {
	return EmbeddedRuleSet(rules.DefaultFile)
}

// EmbeddedRuleSet loads a rule set shipped in the rules package.
func EmbeddedRuleSet(name string) (*RuleSet, error) {
	data, err := rules.FS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("embedded rule set %q: %w", name, err)
	}
	set, err := ParseRuleSetYAML(data)
	if err != nil {
		return nil, fmt.Errorf("embedded rule set %q: %w", name, err)
	}
	return set, nil
}
