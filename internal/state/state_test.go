package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_IsClosedSet(t *testing.T) {
	all := All()
	require.Len(t, all, 7)
	for _, s := range all {
		assert.True(t, s.IsValid(), "%v should be valid", s)
	}
}

func TestIsValid_RejectsOutOfRange(t *testing.T) {
	assert.False(t, State(0).IsValid())
	assert.False(t, State(8).IsValid())
	assert.False(t, IsValid(State(255)))
}

func TestIsTerminal(t *testing.T) {
	for _, s := range All() {
		assert.Equal(t, s == Closed, IsTerminal(s), "state %v", s)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want State
	}{
		{"CREATED", Created},
		{"under_review", UnderReview},
		{"  WAITING_INFO ", WaitingInfo},
		{"Escalated", Escalated},
		{"APPROVED", Approved},
		{"REJECTED", Rejected},
		{"CLOSED", Closed},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	for _, in := range []string{"", "OPEN", "APPROVE", "State(3)"} {
		_, err := Parse(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestString_RoundTripsThroughParse(t *testing.T) {
	for _, s := range All() {
		got, err := Parse(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	assert.Equal(t, "State(42)", State(42).String())
}

func TestTextMarshalling(t *testing.T) {
	type wrapper struct {
		S State `json:"s"`
	}

	data, err := json.Marshal(wrapper{S: WaitingInfo})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"WAITING_INFO"}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"s":"ESCALATED"}`), &w))
	assert.Equal(t, Escalated, w.S)

	assert.Error(t, json.Unmarshal([]byte(`{"s":"NOPE"}`), &w))

	_, err = json.Marshal(wrapper{})
	assert.Error(t, err)
}
