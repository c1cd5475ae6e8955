package fact

import (
	"fmt"
	"slices"

	"golang.org/x/text/unicode/norm"
)

// Set is an immutable mapping of fact names to values.
//
// Every constructor copies its input, so a Set never aliases a caller's map.
// The zero value is an empty set.
type Set struct {
	m map[string]Value
}

// Pair is a name/value pair for building a Set from literals.
type Pair struct {
	Name  string
	Value Value
}

// P is shorthand for Pair.
// Example: fact.Of(fact.P("amount_within_threshold", fact.Bool(true)))
func P(name string, v Value) Pair {
	return Pair{Name: name, Value: v}
}

// Empty returns a set with no facts.
func Empty() Set {
	return Set{}
}

// NewSet builds a Set from values. Names are NFC normalised; empty names,
// names colliding after normalisation, nil values and non-finite floats are
// rejected.
func NewSet(values map[string]Value) (Set, error) {
	m := make(map[string]Value, len(values))
	for name, v := range values {
		if err := put(m, name, v); err != nil {
			return Set{}, err
		}
	}
	return Set{m: m}, nil
}

// FromMap builds a Set from plain Go values (see ValueOf).
func FromMap(values map[string]any) (Set, error) {
	m := make(map[string]Value, len(values))
	for name, raw := range values {
		v, err := ValueOf(raw)
		if err != nil {
			return Set{}, fmt.Errorf("fact %q: %w", name, err)
		}
		if err := put(m, name, v); err != nil {
			return Set{}, err
		}
	}
	return Set{m: m}, nil
}

// Of builds a Set from literal pairs and panics on invalid input.
// Intended for package-level tables and tests.
func Of(pairs ...Pair) Set {
	m := make(map[string]Value, len(pairs))
	for _, p := range pairs {
		if err := put(m, p.Name, p.Value); err != nil {
			panic(fmt.Sprintf("fact.Of: %v", err))
		}
	}
	return Set{m: m}
}

func put(m map[string]Value, name string, v Value) error {
	key := norm.NFC.String(name)
	if key == "" {
		return fmt.Errorf("fact name must not be empty")
	}
	if v == nil {
		return fmt.Errorf("fact %q: nil value", name)
	}
	checked, err := checkValue(v)
	if err != nil {
		return fmt.Errorf("fact %q: %w", name, err)
	}
	if _, dup := m[key]; dup {
		return fmt.Errorf("fact %q: duplicate name after normalisation", name)
	}
	m[key] = checked
	return nil
}

// Get returns the value for name and whether it is present.
func (s Set) Get(name string) (Value, bool) {
	v, ok := s.m[norm.NFC.String(name)]
	return v, ok
}

// Len returns the number of facts.
func (s Set) Len() int {
	return len(s.m)
}

// Keys returns fact names in canonical order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// Map returns a copy of the facts as native Go values.
func (s Set) Map() map[string]any {
	out := make(map[string]any, len(s.m))
	for k, v := range s.m {
		out[k] = v.Native()
	}
	return out
}

// With returns a new Set with name set to v. The receiver is unchanged.
func (s Set) With(name string, v Value) (Set, error) {
	m := make(map[string]Value, len(s.m)+1)
	for k, existing := range s.m {
		m[k] = existing
	}
	delete(m, norm.NFC.String(name))
	if err := put(m, name, v); err != nil {
		return s, err
	}
	return Set{m: m}, nil
}

// Equal reports whether both sets hold the same names with equal values.
func (s Set) Equal(other Set) bool {
	if len(s.m) != len(other.m) {
		return false
	}
	for k, v := range s.m {
		ov, ok := other.m[k]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

func (s Set) String() string {
	data, err := s.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("fact.Set(%d)", len(s.m))
	}
	return string(data)
}
