package harness

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/roach88/caseflow/internal/fact"
	"github.com/roach88/caseflow/internal/guard"
	"github.com/roach88/caseflow/internal/policy"
	"github.com/roach88/caseflow/internal/state"
	"github.com/roach88/caseflow/internal/transition"
)

// Scenario is a sequence of transition requests with expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Policy is an optional CUE guard policy path, relative to the scenario
	// file. The built-in policy is used when empty.
	Policy string `yaml:"policy,omitempty"`

	// Cases are created, in order, before the first step.
	Cases []CaseSpec `yaml:"cases"`

	// Steps are transition requests executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions"`

	guards *guard.Registry
}

// CaseSpec describes a case to create.
type CaseSpec struct {
	ID    string         `yaml:"id"`
	Title string         `yaml:"title"`
	Facts map[string]any `yaml:"facts,omitempty"`
}

// Step is one RequestTransition call.
type Step struct {
	Case   string         `yaml:"case"`
	To     string         `yaml:"to"`
	Reason string         `yaml:"reason"`
	Facts  map[string]any `yaml:"facts,omitempty"`

	// Expect is checked against the step's outcome. Nil means unchecked.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Outcome is "committed" or an engine error code such as GUARD_FAILURE.
	Outcome string `yaml:"outcome"`

	// Guard is the expected failing guard name (GUARD_FAILURE only).
	Guard string `yaml:"guard,omitempty"`
}

// Assertion validates the trace or the stored cases.
type Assertion struct {
	Type    string   `yaml:"type"`
	Case    string   `yaml:"case,omitempty"`
	State   string   `yaml:"state,omitempty"`
	States  []string `yaml:"states,omitempty"`
	Count   int      `yaml:"count,omitempty"`
	Outcome string   `yaml:"outcome,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState = "final_state"
	AssertAuditCount = "audit_count"
	AssertAuditPath  = "audit_path"
	AssertChainValid = "chain_valid"
	AssertTraceCount = "trace_count"
)

// Guards returns the registry the scenario runs with.
func (s *Scenario) Guards() *guard.Registry {
	if s.guards == nil {
		return guard.Default()
	}
	return s.guards
}

// LoadScenario reads and parses a scenario YAML file from fs and compiles
// its policy, if any. Unknown fields are rejected.
func LoadScenario(fs afero.Fs, path string) (*Scenario, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Policy != "" {
		policyPath := scenario.Policy
		if !filepath.IsAbs(policyPath) {
			policyPath = filepath.Join(filepath.Dir(path), policyPath)
		}
		reg, err := policy.LoadFile(fs, policyPath, transition.Default())
		if err != nil {
			return nil, fmt.Errorf("invalid scenario: policy: %w", err)
		}
		scenario.guards = reg
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML. A policy field is not resolved.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	ids := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.ID == "" {
			return fmt.Errorf("cases[%d]: id is required", i)
		}
		if ids[c.ID] {
			return fmt.Errorf("cases[%d]: duplicate id %q", i, c.ID)
		}
		ids[c.ID] = true
		if _, err := fact.FromMap(c.Facts); err != nil {
			return fmt.Errorf("cases[%d]: facts: %w", i, err)
		}
	}

	for i, step := range s.Steps {
		if step.Case == "" {
			return fmt.Errorf("steps[%d]: case is required", i)
		}
		if step.To == "" {
			return fmt.Errorf("steps[%d]: to is required", i)
		}
		if _, err := fact.FromMap(step.Facts); err != nil {
			return fmt.Errorf("steps[%d]: facts: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Outcome == "" {
			return fmt.Errorf("steps[%d].expect: outcome is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalState:
		if a.Case == "" {
			return fmt.Errorf("assertions[%d]: case is required for final_state", index)
		}
		if _, err := state.Parse(a.State); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertAuditCount:
		if a.Case == "" {
			return fmt.Errorf("assertions[%d]: case is required for audit_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for audit_count", index)
		}
	case AssertAuditPath:
		if a.Case == "" {
			return fmt.Errorf("assertions[%d]: case is required for audit_path", index)
		}
		if len(a.States) == 0 {
			return fmt.Errorf("assertions[%d]: states list is required for audit_path", index)
		}
		for _, name := range a.States {
			if _, err := state.Parse(name); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertChainValid:
		if a.Case == "" {
			return fmt.Errorf("assertions[%d]: case is required for chain_valid", index)
		}
	case AssertTraceCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
