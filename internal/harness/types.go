package harness

// Status is the outcome of evaluating one rule.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusWarn Status = "warn" // failed rule with warning severity
)

// Outcome records the result of one rule evaluation.
type Outcome struct {
	RuleID  string `json:"rule_id"`
	Name    string `json:"name"`
	Group   string `json:"group,omitempty"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`

	// Fault is true when the rule could not be evaluated (bad selector,
	// panic) rather than its predicate not holding. Faults are failures.
	Fault bool `json:"fault,omitempty"`
}

// Passed reports whether the rule held.
func (o Outcome) Passed() bool {
	return o.Status == StatusPass
}

// RunResult is the ordered list of outcomes from one evaluation of a rule
// set against one document. Outcomes are in rule order, one per rule.
type RunResult struct {
	Document string    `json:"document"`
	RuleSet  string    `json:"rule_set,omitempty"`
	Outcomes []Outcome `json:"outcomes"`
}

// Summary aggregates outcome counts.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Warned int `json:"warned"`
	Faults int `json:"faults"`
}

// NewRunResult creates an empty result for the given document.
func NewRunResult(document, ruleSet string) *RunResult {
	return &RunResult{
		Document: document,
		RuleSet:  ruleSet,
		Outcomes: []Outcome{},
	}
}

// Add appends an outcome.
func (r *RunResult) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

// Summary counts outcomes by status.
func (r *RunResult) Summary() Summary {
	s := Summary{Total: len(r.Outcomes)}
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusPass:
			s.Passed++
		case StatusFail:
			s.Failed++
		case StatusWarn:
			s.Warned++
		}
		if o.Fault {
			s.Faults++
		}
	}
	return s
}

// Pass reports whether no rule failed. Warnings do not fail a run.
func (r *RunResult) Pass() bool {
	return r.Summary().Failed == 0
}

// Failures returns the failed outcomes in order.
func (r *RunResult) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFail {
			out = append(out, o)
		}
	}
	return out
}

// Outcome returns the outcome for a rule id.
func (r *RunResult) Outcome(ruleID string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.RuleID == ruleID {
			return o, true
		}
	}
	return Outcome{}, false
}
