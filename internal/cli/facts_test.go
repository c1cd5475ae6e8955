package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/caseflow/internal/fact"
)

func TestParseFact(t *testing.T) {
	tests := []struct {
		pair string
		name string
		want fact.Value
	}{
		{pair: "approved=true", name: "approved", want: fact.Bool(true)},
		{pair: "blocked=false", name: "blocked", want: fact.Bool(false)},
		{pair: "amount=1200", name: "amount", want: fact.Int(1200)},
		{pair: "delta=-3", name: "delta", want: fact.Int(-3)},
		{pair: "ratio=0.25", name: "ratio", want: fact.Float(0.25)},
		{pair: "tier=gold", name: "tier", want: fact.String("gold")},
		{pair: `code="42"`, name: "code", want: fact.String("42")},
		{pair: `flag="true"`, name: "flag", want: fact.String("true")},
		{pair: "note=", name: "note", want: fact.String("")},
		{pair: "expr=a=b", name: "expr", want: fact.String("a=b")},
		{pair: "big=1e999", name: "big", want: fact.String("1e999")},
		{pair: " spaced =x", name: "spaced", want: fact.String("x")},
	}

	for _, tt := range tests {
		t.Run(tt.pair, func(t *testing.T) {
			name, v, err := ParseFact(tt.pair)
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.True(t, fact.Equal(tt.want, v), "got %v", v)
		})
	}
}

func TestParseFact_Invalid(t *testing.T) {
	for _, pair := range []string{"novalue", "=x", "  =x", ""} {
		_, _, err := ParseFact(pair)
		assert.ErrorContains(t, err, "want name=value", pair)
	}
}

func TestFactFlags_Apply(t *testing.T) {
	base := fact.Of(
		fact.P("amount", fact.Int(100)),
		fact.P("tier", fact.String("silver")),
	)
	flags := FactFlags{
		JSON:  `{"tier": "gold", "high_amount": true}`,
		Pairs: []string{"amount=5000", "tier=platinum"},
	}

	got, err := flags.Apply(base)
	require.NoError(t, err)

	want := fact.Of(
		fact.P("amount", fact.Int(5000)),
		fact.P("high_amount", fact.Bool(true)),
		fact.P("tier", fact.String("platinum")),
	)
	assert.True(t, want.Equal(got), "got %s", got)

	v, _ := base.Get("amount")
	assert.True(t, fact.Equal(fact.Int(100), v), "base must not change")
}

func TestFactFlags_ApplyErrors(t *testing.T) {
	_, err := FactFlags{JSON: `{"nested": {"a": 1}}`}.Apply(fact.Empty())
	assert.ErrorContains(t, err, "invalid --facts JSON")

	_, err = FactFlags{JSON: `[1, 2]`}.Apply(fact.Empty())
	assert.ErrorContains(t, err, "invalid --facts JSON")

	_, err = FactFlags{Pairs: []string{"oops"}}.Apply(fact.Empty())
	assert.ErrorContains(t, err, "want name=value")
}

func TestFactFlags_Set(t *testing.T) {
	assert.False(t, FactFlags{}.Set())
	assert.False(t, FactFlags{JSON: "  "}.Set())
	assert.True(t, FactFlags{JSON: "{}"}.Set())
	assert.True(t, FactFlags{Pairs: []string{"a=1"}}.Set())
}
