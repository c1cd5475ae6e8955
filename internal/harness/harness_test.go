package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/caseflow/internal/store"
)

func loadTestdata(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(afero.NewOsFs(), filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func parse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		t.Run(name, func(t *testing.T) {
			scenario := loadTestdata(t, name)
			assert.Equal(t, name, scenario.Name, "file name and scenario name must agree")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_IsDeterministic(t *testing.T) {
	scenario := loadTestdata(t, "guarded_approval")

	first, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Trace, second.Trace); diff != "" {
		t.Errorf("trace changed between runs (-first +second):\n%s", diff)
	}
}

func TestRun_PureDriverMatches(t *testing.T) {
	scenario := loadTestdata(t, "waiting_info_and_escalation")

	cgo, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	pure, err := Run(context.Background(), scenario, WithDriver(store.DriverPure))
	require.NoError(t, err)

	assert.True(t, pure.Pass, "errors: %v", pure.Errors)
	if diff := cmp.Diff(cgo.Trace, pure.Trace); diff != "" {
		t.Errorf("drivers disagree (-cgo +pure):\n%s", diff)
	}
}

func TestRun_FailedExpectation(t *testing.T) {
	scenario := parse(t, `
name: wrong_expectation
description: "expects a commit that cannot happen"
cases:
  - id: c1
    title: t
steps:
  - case: c1
    to: CLOSED
    reason: skip
    expect:
      outcome: committed
  - case: c1
    to: UNDER_REVIEW
    reason: submit
  - case: c1
    to: APPROVED
    reason: approve
    expect:
      outcome: GUARD_FAILURE
      guard: "something_else == true"
assertions:
  - type: chain_valid
    case: c1
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		"steps[0]: expected outcome committed, got ILLEGAL_TRANSITION",
		`steps[2]: expected guard "something_else == true", got "risk_rules_passed == true"`,
	}, result.Errors)
	require.Len(t, result.Trace, 3)
}

func TestRun_FailedAssertions(t *testing.T) {
	scenario := parse(t, `
name: wrong_assertions
description: "every assertion type failing"
cases:
  - id: c1
    title: t
steps:
  - case: c1
    to: UNDER_REVIEW
    reason: submit
assertions:
  - type: final_state
    case: c1
    state: APPROVED
  - type: audit_count
    case: c1
    count: 2
  - type: audit_path
    case: c1
    states: [CREATED, APPROVED]
  - type: trace_count
    outcome: committed
    count: 0
  - type: final_state
    case: ghost
    state: CREATED
  - type: chain_valid
    case: c1
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5, "chain_valid passes: %v", result.Errors)
	assert.Contains(t, result.Errors[0], "Expected: case c1 in APPROVED")
	assert.Contains(t, result.Errors[0], "Actual: case c1 in UNDER_REVIEW")
	assert.Contains(t, result.Errors[1], "Expected: 2 audit records for c1")
	assert.Contains(t, result.Errors[2], "Expected: CREATED -> APPROVED")
	assert.Contains(t, result.Errors[2], "Actual: CREATED -> UNDER_REVIEW")
	assert.Contains(t, result.Errors[3], "Full trace:")
	assert.Contains(t, result.Errors[4], "case not found")
}

func TestRun_DuplicateCaseIsAnError(t *testing.T) {
	scenario := parse(t, `
name: ok
description: "d"
cases:
  - id: c1
    title: t
steps:
  - case: c1
    to: UNDER_REVIEW
    reason: r
assertions:
  - type: chain_valid
    case: c1
`)
	scenario.Cases = append(scenario.Cases, CaseSpec{ID: "c1", Title: "again"})

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrCaseExists)
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "1 steps with outcome committed",
		Actual:   "0 steps",
		Trace: []TraceEvent{
			{Step: 1, CaseID: "c1", From: "CREATED", To: "CLOSED", Outcome: "ILLEGAL_TRANSITION"},
		},
	}

	assert.Equal(t, "Assertion failed: trace_count\n"+
		"  Expected: 1 steps with outcome committed\n"+
		"  Actual: 0 steps\n"+
		"\nFull trace:\n"+
		"  [1] c1 CREATED -> CLOSED: ILLEGAL_TRANSITION\n", err.Error())
}

func TestSnapshot_TrailingNewline(t *testing.T) {
	data, err := Snapshot("empty", NewResult())
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"scenario_name\": \"empty\",\n  \"trace\": []\n}\n", string(data))
}

func TestGoldenPath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "x.golden"), GoldenPath("scenarios", "x"))
}
