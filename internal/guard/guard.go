// Package guard maps legal transitions to ordered preconditions over facts.
//
// Guards are pure: they see only the fact set handed to them. They never
// compute facts, read storage or consult the clock. A pair with no guards is
// allowed as soon as the transition table allows it.
package guard

import (
	"fmt"

	"github.com/roach88/caseflow/internal/fact"
	"github.com/roach88/caseflow/internal/state"
	"github.com/roach88/caseflow/internal/transition"
)

// Predicate decides a guard from a fact set.
type Predicate func(fact.Set) bool

// Guard is a named predicate. The name is reported when the guard fails.
type Guard struct {
	name  string
	check Predicate
}

// New returns a guard with an arbitrary predicate.
func New(name string, check Predicate) Guard {
	return Guard{name: name, check: check}
}

// Require returns a guard that passes only when the named fact is present
// and equal, in kind and value, to want. A missing fact fails the guard.
func Require(name string, want fact.Value) Guard {
	return Guard{
		name: fmt.Sprintf("%s == %s", name, fact.Literal(want)),
		check: func(facts fact.Set) bool {
			got, ok := facts.Get(name)
			return ok && fact.Equal(got, want)
		},
	}
}

// RequireTrue is Require(name, fact.Bool(true)).
func RequireTrue(name string) Guard {
	return Require(name, fact.Bool(true))
}

// Name identifies the guard in failure reports.
func (g Guard) Name() string {
	return g.name
}

// Evaluate runs the predicate. A guard without a predicate never passes.
func (g Guard) Evaluate(facts fact.Set) bool {
	if g.check == nil {
		return false
	}
	return g.check(facts)
}

// Pair is a (from, to) transition key.
type Pair struct {
	From state.State
	To   state.State
}

func (p Pair) String() string {
	return fmt.Sprintf("%s->%s", p.From, p.To)
}

// Rule binds guards to one transition pair.
type Rule struct {
	From   state.State
	To     state.State
	Guards []Guard
}

// Registry is the immutable lookup from transition pair to guards.
type Registry struct {
	rules map[Pair][]Guard
}

// NewRegistry builds a registry. Rules naming a pair that table does not
// allow are rejected, as are unnamed guards and guards without a predicate.
// Several rules for the same pair are concatenated in the order given.
func NewRegistry(table *transition.Table, rules ...Rule) (*Registry, error) {
	r := &Registry{rules: make(map[Pair][]Guard)}
	for _, rule := range rules {
		p := Pair{From: rule.From, To: rule.To}
		if !table.Allows(rule.From, rule.To) {
			return nil, fmt.Errorf("guard registry: %s -> %s is not a legal transition", rule.From, rule.To)
		}
		for i, g := range rule.Guards {
			if g.name == "" {
				return nil, fmt.Errorf("guard registry: %v guard %d has no name", p, i)
			}
			if g.check == nil {
				return nil, fmt.Errorf("guard registry: %v guard %q has no predicate", p, g.name)
			}
		}
		r.rules[p] = append(r.rules[p], rule.Guards...)
	}
	return r, nil
}

// Empty returns a registry without guards.
func Empty() *Registry {
	return &Registry{rules: map[Pair][]Guard{}}
}

// GuardsFor returns the guards for from -> to in registration order.
// The result is a copy.
func (r *Registry) GuardsFor(from, to state.State) []Guard {
	guards := r.rules[Pair{From: from, To: to}]
	out := make([]Guard, len(guards))
	copy(out, guards)
	return out
}

// Evaluate runs the guards for from -> to against facts in order and stops
// at the first failure. It returns the failing guard's name and false, or
// "" and true when every guard passed.
func (r *Registry) Evaluate(from, to state.State, facts fact.Set) (failed string, ok bool) {
	for _, g := range r.rules[Pair{From: from, To: to}] {
		if !g.Evaluate(facts) {
			return g.name, false
		}
	}
	return "", true
}

// Pairs returns every pair that has at least one guard.
func (r *Registry) Pairs() []Pair {
	out := make([]Pair, 0, len(r.rules))
	for _, from := range state.All() {
		for _, to := range state.All() {
			if len(r.rules[Pair{From: from, To: to}]) > 0 {
				out = append(out, Pair{From: from, To: to})
			}
		}
	}
	return out
}
