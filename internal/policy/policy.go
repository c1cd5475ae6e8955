// Package policy loads guard registries from CUE files.
//
// A policy file lists guards per transition:
//
//	guards: [
//		{from: "UNDER_REVIEW", to: "APPROVED", require: [
//			{fact: "amount_within_threshold", equals: true},
//		]},
//	]
//
// equals defaults to true and may be a bool, int, float or string. Files are
// unified with the embedded #Policy schema before any entry is read, then
// every entry must name a pair the transition table allows.
package policy

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/spf13/afero"

	"github.com/roach88/caseflow/internal/fact"
	"github.com/roach88/caseflow/internal/guard"
	"github.com/roach88/caseflow/internal/state"
	"github.com/roach88/caseflow/internal/transition"
)

//go:embed schema.cue
var schemaSource []byte

//go:embed default.cue
var defaultSource []byte

// DefaultSource returns the built-in policy file, equivalent to
// guard.DefaultRules.
func DefaultSource() []byte {
	return append([]byte(nil), defaultSource...)
}

// Error is a policy problem with its CUE position when one is known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadFile reads a policy from fs and builds a registry checked against
// table. A nil table means transition.Default().
func LoadFile(fs afero.Fs, path string, table *transition.Table) (*guard.Registry, error) {
	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return Compile(path, src, table)
}

// Compile builds a registry from policy source. filename only labels
// positions in errors.
func Compile(filename string, src []byte, table *transition.Table) (*guard.Registry, error) {
	if table == nil {
		table = transition.Default()
	}
	rules, err := Rules(filename, src)
	if err != nil {
		return nil, err
	}
	reg, err := guard.NewRegistry(table, rules...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return reg, nil
}

// Rules parses and schema-checks policy source without consulting a
// transition table.
func Rules(filename string, src []byte) ([]guard.Rule, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Policy")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	iter, err := unified.LookupPath(cue.ParsePath("guards")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rules []guard.Rule
	for i := 0; iter.Next(); i++ {
		rule, err := parseRule(fmt.Sprintf("guards[%d]", i), iter.Value())
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func parseRule(field string, v cue.Value) (guard.Rule, error) {
	from, err := parseState(field+".from", v.LookupPath(cue.ParsePath("from")))
	if err != nil {
		return guard.Rule{}, err
	}
	to, err := parseState(field+".to", v.LookupPath(cue.ParsePath("to")))
	if err != nil {
		return guard.Rule{}, err
	}

	iter, err := v.LookupPath(cue.ParsePath("require")).List()
	if err != nil {
		return guard.Rule{}, formatCUEError(err)
	}

	rule := guard.Rule{From: from, To: to}
	for i := 0; iter.Next(); i++ {
		reqField := fmt.Sprintf("%s.require[%d]", field, i)
		req := iter.Value()

		name, err := req.LookupPath(cue.ParsePath("fact")).String()
		if err != nil {
			return guard.Rule{}, formatCUEError(err)
		}
		want, err := parseValue(reqField+".equals", req.LookupPath(cue.ParsePath("equals")))
		if err != nil {
			return guard.Rule{}, err
		}
		rule.Guards = append(rule.Guards, guard.Require(name, want))
	}
	return rule, nil
}

func parseState(field string, v cue.Value) (state.State, error) {
	text, err := v.String()
	if err != nil {
		return 0, formatCUEError(err)
	}
	s, err := state.Parse(text)
	if err != nil {
		return 0, &Error{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return s, nil
}

// parseValue maps a concrete CUE scalar onto a fact value.
func parseValue(field string, v cue.Value) (fact.Value, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	switch v.Kind() {
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return fact.Bool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return fact.Int(i), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return fact.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return fact.String(s), nil
	default:
		return nil, &Error{
			Field:   field,
			Message: fmt.Sprintf("unsupported kind %s", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &Error{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
