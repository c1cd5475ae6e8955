package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/caseflow/internal/fact"
)

// FactFlags are the fact inputs shared by create, update and transition.
type FactFlags struct {
	Pairs []string // repeated --fact key=value
	JSON  string   // --facts '{"key": value}'
}

// Apply overlays the JSON object, then each --fact pair, on base.
func (f FactFlags) Apply(base fact.Set) (fact.Set, error) {
	out := base
	if strings.TrimSpace(f.JSON) != "" {
		parsed, err := fact.Unmarshal(f.JSON)
		if err != nil {
			return fact.Set{}, fmt.Errorf("invalid --facts JSON: %w", err)
		}
		for _, k := range parsed.Keys() {
			v, _ := parsed.Get(k)
			if out, err = out.With(k, v); err != nil {
				return fact.Set{}, err
			}
		}
	}
	for _, pair := range f.Pairs {
		name, v, err := ParseFact(pair)
		if err != nil {
			return fact.Set{}, err
		}
		if out, err = out.With(name, v); err != nil {
			return fact.Set{}, fmt.Errorf("invalid --fact %q: %w", pair, err)
		}
	}
	return out, nil
}

// Set reports whether any fact flag was given.
func (f FactFlags) Set() bool {
	return len(f.Pairs) > 0 || strings.TrimSpace(f.JSON) != ""
}

// ParseFact parses "name=value". Values are typed by their text: true and
// false are booleans, integers are Int, other finite numbers are Float and
// everything else, including a double-quoted value, is a String.
func ParseFact(pair string) (string, fact.Value, error) {
	name, text, ok := strings.Cut(pair, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid --fact %q: want name=value", pair)
	}
	return name, parseFactValue(text), nil
}

func parseFactValue(text string) fact.Value {
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		if s, err := strconv.Unquote(text); err == nil {
			return fact.String(s)
		}
	}
	switch text {
	case "true":
		return fact.Bool(true)
	case "false":
		return fact.Bool(false)
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return fact.Int(i)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return fact.Float(f)
	}
	return fact.String(text)
}
