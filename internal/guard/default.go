package guard

import (
	"github.com/roach88/caseflow/internal/state"
	"github.com/roach88/caseflow/internal/transition"
)

// DefaultRules is the built-in guard policy for the default transition table.
// CREATED -> UNDER_REVIEW is deliberately unguarded: submitting a case needs
// no facts.
func DefaultRules() []Rule {
	return []Rule{
		{From: state.UnderReview, To: state.Approved, Guards: []Guard{
			RequireTrue("risk_rules_passed"),
			RequireTrue("amount_within_threshold"),
		}},
		{From: state.UnderReview, To: state.Rejected, Guards: []Guard{RequireTrue("validation_failed")}},
		{From: state.UnderReview, To: state.Escalated, Guards: []Guard{RequireTrue("high_amount")}},
		{From: state.UnderReview, To: state.WaitingInfo, Guards: []Guard{RequireTrue("missing_info_detected")}},
		{From: state.WaitingInfo, To: state.UnderReview, Guards: []Guard{RequireTrue("additional_info_provided")}},
		{From: state.Approved, To: state.Closed, Guards: []Guard{RequireTrue("no_pending_actions")}},
		{From: state.Rejected, To: state.Closed, Guards: []Guard{RequireTrue("no_pending_actions")}},
	}
}

// Default returns the built-in registry over transition.Default().
func Default() *Registry {
	r, err := NewRegistry(transition.Default(), DefaultRules()...)
	if err != nil {
		panic(err)
	}
	return r
}
