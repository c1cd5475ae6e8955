package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/caseflow/internal/engine"
	"github.com/roach88/caseflow/internal/fact"
	"github.com/roach88/caseflow/internal/state"
	"github.com/roach88/caseflow/internal/store"
	"github.com/roach88/caseflow/internal/testutil"
	"github.com/roach88/caseflow/internal/transition"
)

// ClockStep is how far the harness clock advances per reading.
const ClockStep = time.Second

// Harness executes one scenario.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	clock  *testutil.StepClock
}

type options struct {
	driver string
}

// Option configures Run.
type Option func(*options)

// WithDriver selects the SQLite driver for the scenario database.
func WithDriver(name string) Option {
	return func(o *options) {
		o.driver = name
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. The clock starts at
// testutil.Epoch and advances ClockStep per reading, so traces are
// reproducible. A non-nil error means the scenario could not be executed;
// failed expectations are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{driver: store.DriverCGO}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.Open(":memory:", store.WithDriver(o.driver))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewStepClock(testutil.Epoch, ClockStep)
	h := &Harness{
		store:  st,
		engine: engine.New(st, transition.Default(), scenario.Guards(), engine.WithClock(clock)),
		clock:  clock,
	}

	if err := h.createCases(ctx, scenario.Cases); err != nil {
		return nil, fmt.Errorf("failed to create cases: %w", err)
	}

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	for _, msg := range EvaluateAssertions(ctx, st, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) createCases(ctx context.Context, cases []CaseSpec) error {
	for i, c := range cases {
		facts, err := fact.FromMap(c.Facts)
		if err != nil {
			return fmt.Errorf("case %d: %w", i, err)
		}
		if _, err := h.store.CreateCase(ctx, store.NewCase{
			ID:        c.ID,
			Title:     c.Title,
			Facts:     facts,
			CreatedAt: h.clock.Now(),
		}); err != nil {
			return fmt.Errorf("case %d: %w", i, err)
		}
	}
	return nil
}

// executeSteps runs every step through the engine and checks expect
// clauses. Engine rejections are outcomes, not errors.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		facts, err := fact.FromMap(step.Facts)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}

		// An unknown name still reaches the engine so it reports INVALID_STATE.
		target, parseErr := state.Parse(step.To)
		if parseErr != nil {
			target = 0
		}

		ev := TraceEvent{Step: i + 1, CaseID: step.Case, To: step.To}
		rec, err := h.engine.RequestTransition(ctx, step.Case, target, facts, step.Reason)

		var te *engine.TransitionError
		switch {
		case err == nil:
			ev.From = rec.FromState.String()
			ev.To = rec.ToState.String()
			ev.Outcome = OutcomeCommitted
			ev.Sequence = rec.Sequence
			ev.At = rec.CreatedAt.Format(time.RFC3339Nano)
		case errors.As(err, &te):
			if te.From.IsValid() {
				ev.From = te.From.String()
			}
			if te.To.IsValid() {
				ev.To = te.To.String()
			}
			ev.Outcome = string(te.Code)
			ev.Guard = te.Guard
		default:
			return fmt.Errorf("step %d: %w", i, err)
		}
		result.AddTrace(ev)

		if step.Expect != nil {
			checkExpect(i, step.Expect, ev, result)
		}
	}
	return nil
}

func checkExpect(index int, want *ExpectClause, got TraceEvent, result *Result) {
	if want.Outcome != got.Outcome {
		result.AddError(fmt.Sprintf("steps[%d]: expected outcome %s, got %s", index, want.Outcome, got.Outcome))
		return
	}
	if want.Guard != "" && want.Guard != got.Guard {
		result.AddError(fmt.Sprintf("steps[%d]: expected guard %q, got %q", index, want.Guard, got.Guard))
	}
}
