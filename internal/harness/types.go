package harness

// OutcomeCommitted is the trace outcome of a step that was written.
const OutcomeCommitted = "committed"

// TraceEvent is the outcome of one scenario step.
type TraceEvent struct {
	Step    int    `json:"step"`
	CaseID  string `json:"case_id"`
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Outcome string `json:"outcome"` // OutcomeCommitted or an engine error code
	Guard   string `json:"guard,omitempty"`

	// Sequence and At are set for committed steps only.
	Sequence int64  `json:"sequence,omitempty"`
	At       string `json:"at,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
