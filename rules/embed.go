// Package rules embeds the built-in page rule sets.
// It has no imports besides embed so any package can depend on it.
package rules

import "embed"

// FS holds every *.yaml rule set shipped with the binary.
//
//go:embed *.yaml
var FS embed.FS

// DefaultFile is the name of the rule set used when none is given.
const DefaultFile = "default.yaml"
