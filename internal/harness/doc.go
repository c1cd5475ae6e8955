// Package harness runs case workflow scenarios against a real engine.
//
// Each scenario executes in a fresh in-memory database with a deterministic
// clock, so the same file always produces the same trace. Traces can be
// compared against golden files.
//
// # Scenario Format
//
//	name: guarded_approval
//	description: "Approval needs both risk facts"
//	policy: guards.cue            # optional, relative to the scenario file
//	cases:
//	  - id: claim-1
//	    title: Water damage
//	    facts: { amount: 1200 }
//	steps:
//	  - case: claim-1
//	    to: UNDER_REVIEW
//	    reason: submitted
//	  - case: claim-1
//	    to: APPROVED
//	    reason: approve
//	    facts: { risk_rules_passed: true }
//	    expect:
//	      outcome: GUARD_FAILURE
//	      guard: "amount_within_threshold == true"
//	assertions:
//	  - type: final_state
//	    case: claim-1
//	    state: UNDER_REVIEW
//	  - type: audit_path
//	    case: claim-1
//	    states: [CREATED, UNDER_REVIEW]
//
// A step's facts are passed to the engine as given; the case's stored facts
// are not merged in. A step without expect is not checked.
//
// # Assertion Types
//
//   - final_state: the case is in state
//   - audit_count: the case has exactly count audit records
//   - audit_path: the audit trail visits states in order, starting at CREATED
//   - chain_valid: the audit trail reproduces the case row
//   - trace_count: exactly count steps ended with outcome
package harness
