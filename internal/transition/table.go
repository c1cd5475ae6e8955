// Package transition holds the declarative table of legal state changes.
//
// A pair missing from the table is illegal. There is no implicit allow.
package transition

import (
	"fmt"
	"slices"

	"github.com/roach88/caseflow/internal/state"
)

// Table maps each state to the set of states it may move to.
// A Table is immutable once built.
type Table struct {
	edges map[state.State][]state.State
}

// Edge is one row of a table definition.
type Edge struct {
	From state.State
	To   []state.State
}

// NewTable builds a Table from edges. Every state mentioned must be valid,
// a source may appear only once, and terminal states may not have targets.
func NewTable(edges ...Edge) (*Table, error) {
	t := &Table{edges: make(map[state.State][]state.State, len(edges))}
	for _, e := range edges {
		if !e.From.IsValid() {
			return nil, fmt.Errorf("transition table: invalid source state %v", e.From)
		}
		if _, dup := t.edges[e.From]; dup {
			return nil, fmt.Errorf("transition table: duplicate source state %v", e.From)
		}
		if e.From.IsTerminal() && len(e.To) > 0 {
			return nil, fmt.Errorf("transition table: terminal state %v cannot have targets", e.From)
		}
		targets := make([]state.State, 0, len(e.To))
		for _, to := range e.To {
			if !to.IsValid() {
				return nil, fmt.Errorf("transition table: invalid target state %v from %v", to, e.From)
			}
			if slices.Contains(targets, to) {
				return nil, fmt.Errorf("transition table: duplicate target %v from %v", to, e.From)
			}
			targets = append(targets, to)
		}
		slices.Sort(targets)
		t.edges[e.From] = targets
	}
	return t, nil
}

// MustTable is NewTable for package-level definitions. It panics on error.
func MustTable(edges ...Edge) *Table {
	t, err := NewTable(edges...)
	if err != nil {
		panic(err)
	}
	return t
}

var defaultTable = MustTable(
	Edge{From: state.Created, To: []state.State{state.UnderReview}},
	Edge{From: state.UnderReview, To: []state.State{state.Approved, state.Rejected, state.Escalated, state.WaitingInfo}},
	Edge{From: state.WaitingInfo, To: []state.State{state.UnderReview}},
	Edge{From: state.Escalated, To: []state.State{state.Approved, state.Rejected}},
	Edge{From: state.Approved, To: []state.State{state.Closed}},
	Edge{From: state.Rejected, To: []state.State{state.Closed}},
	Edge{From: state.Closed},
)

// Default returns the case workflow table.
func Default() *Table {
	return defaultTable
}

// AllowedTargets returns the states reachable from from in one step,
// sorted in state declaration order. The result is a copy.
func (t *Table) AllowedTargets(from state.State) []state.State {
	return slices.Clone(t.edges[from])
}

// Allows reports whether from -> to is a legal transition.
func (t *Table) Allows(from, to state.State) bool {
	return slices.Contains(t.edges[from], to)
}

// Pairs returns every legal (from, to) pair in a stable order.
func (t *Table) Pairs() [][2]state.State {
	var out [][2]state.State
	for _, from := range state.All() {
		for _, to := range t.edges[from] {
			out = append(out, [2]state.State{from, to})
		}
	}
	return out
}
