package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/caseflow/internal/model"
	"github.com/roach88/caseflow/internal/state"
	"github.com/roach88/caseflow/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s: %s\n", ev.Step, ev.CaseID, ev.From, ev.To, ev.Outcome)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(ctx context.Context, st *store.Store, result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(ctx, st, result.Trace, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(ctx context.Context, st *store.Store, trace []TraceEvent, a Assertion) error {
	switch a.Type {
	case AssertFinalState:
		return assertFinalState(ctx, st, a)
	case AssertAuditCount:
		return assertAuditCount(ctx, st, a)
	case AssertAuditPath:
		return assertAuditPath(ctx, st, a)
	case AssertChainValid:
		return assertChainValid(ctx, st, a)
	case AssertTraceCount:
		return assertTraceCount(trace, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertFinalState checks the case's current state.
func assertFinalState(ctx context.Context, st *store.Store, a Assertion) error {
	want, err := state.Parse(a.State)
	if err != nil {
		return err
	}
	c, err := loadCase(ctx, st, a)
	if err != nil {
		return err
	}
	if c.CurrentState != want {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("case %s in %s", a.Case, want),
			Actual:   fmt.Sprintf("case %s in %s", a.Case, c.CurrentState),
		}
	}
	return nil
}

// assertAuditCount checks the number of audit records for the case.
func assertAuditCount(ctx context.Context, st *store.Store, a Assertion) error {
	records, err := st.ListAudit(ctx, a.Case)
	if err != nil {
		return err
	}
	if len(records) != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d audit records for %s", a.Count, a.Case),
			Actual:   fmt.Sprintf("%d audit records", len(records)),
		}
	}
	return nil
}

// assertAuditPath checks that the audit trail visits exactly a.States.
func assertAuditPath(ctx context.Context, st *store.Store, a Assertion) error {
	if _, err := loadCase(ctx, st, a); err != nil {
		return err
	}
	records, err := st.ListAudit(ctx, a.Case)
	if err != nil {
		return err
	}

	got := auditPath(records)
	want := make([]string, len(a.States))
	for i, name := range a.States {
		s, err := state.Parse(name)
		if err != nil {
			return err
		}
		want[i] = s.String()
	}

	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     a.Type,
			Expected: strings.Join(want, " -> "),
			Actual:   strings.Join(got, " -> "),
		}
	}
	return nil
}

// auditPath lists the states a trail visits, starting at the initial state.
func auditPath(records []model.AuditRecord) []string {
	path := []string{state.Initial.String()}
	for _, rec := range records {
		path = append(path, rec.ToState.String())
	}
	return path
}

// assertChainValid runs the store's audit chain check for the case.
func assertChainValid(ctx context.Context, st *store.Store, a Assertion) error {
	err := st.VerifyChain(ctx, a.Case)
	if errors.Is(err, store.ErrBrokenChain) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("intact audit chain for %s", a.Case),
			Actual:   err.Error(),
		}
	}
	return err
}

// assertTraceCount checks how many steps ended with a.Outcome.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Outcome == a.Outcome {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d steps with outcome %s", a.Count, a.Outcome),
			Actual:   fmt.Sprintf("%d steps", count),
			Trace:    trace,
		}
	}
	return nil
}

func loadCase(ctx context.Context, st *store.Store, a Assertion) (model.Case, error) {
	c, err := st.GetCase(ctx, a.Case)
	if errors.Is(err, store.ErrCaseNotFound) {
		return model.Case{}, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("case %s to exist", a.Case),
			Actual:   "case not found",
		}
	}
	return c, err
}
