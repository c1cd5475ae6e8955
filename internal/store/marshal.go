package store

import (
	"fmt"
	"time"

	"github.com/roach88/caseflow/internal/fact"
	"github.com/roach88/caseflow/internal/state"
)

// timeLayout is fixed-width so that text order equals time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts timeLayout and the shorter forms written by column
// defaults.
func parseTime(text string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", text, err)
	}
	return t.UTC(), nil
}

func marshalFacts(s fact.Set) (string, error) {
	text, err := fact.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal facts: %w", err)
	}
	return text, nil
}

func unmarshalFacts(text string) (fact.Set, error) {
	s, err := fact.Unmarshal(text)
	if err != nil {
		return fact.Set{}, fmt.Errorf("unmarshal facts: %w", err)
	}
	return s, nil
}

// parseState rejects rows whose state text is outside the state set. The
// column is unconstrained in the schema, so this is where validity is
// enforced on read.
func parseState(column, text string) (state.State, error) {
	s, err := state.Parse(text)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", column, err)
	}
	return s, nil
}
