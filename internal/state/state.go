// Package state defines the closed set of case states.
//
// A State is a small integer enumeration. The zero value is not a state, and
// the only way to obtain a State from text is Parse, which rejects anything
// outside the set. The persisted form is the upper-case name.
package state

import (
	"fmt"
	"strings"
)

// State is the phase a case is currently in.
type State uint8

const (
	// Created is the initial state of every case.
	Created State = iota + 1
	// UnderReview means a reviewer is working the case.
	UnderReview
	// WaitingInfo means review is paused until more information arrives.
	WaitingInfo
	// Escalated means the case needs a supervisor decision.
	Escalated
	// Approved means the case was accepted.
	Approved
	// Rejected means the case was declined.
	Rejected
	// Closed is terminal. No transition leaves it.
	Closed
)

// Initial is the state assigned at case creation.
const Initial = Created

var names = [...]string{
	Created:     "CREATED",
	UnderReview: "UNDER_REVIEW",
	WaitingInfo: "WAITING_INFO",
	Escalated:   "ESCALATED",
	Approved:    "APPROVED",
	Rejected:    "REJECTED",
	Closed:      "CLOSED",
}

// All returns every valid state in declaration order.
func All() []State {
	return []State{Created, UnderReview, WaitingInfo, Escalated, Approved, Rejected, Closed}
}

// IsValid reports whether s is a member of the state set.
func (s State) IsValid() bool {
	return s >= Created && s <= Closed
}

// IsTerminal reports whether s is a terminal state.
func (s State) IsTerminal() bool {
	return s == Closed
}

// IsValid reports whether s is a member of the state set.
func IsValid(s State) bool { return s.IsValid() }

// IsTerminal reports whether s is a terminal state.
func IsTerminal(s State) bool { return s.IsTerminal() }

func (s State) String() string {
	if !s.IsValid() {
		return fmt.Sprintf("State(%d)", uint8(s))
	}
	return names[s]
}

// Parse converts a persisted or user supplied name into a State.
// Matching is case-insensitive and ignores surrounding whitespace.
func Parse(name string) (State, error) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for _, s := range All() {
		if names[s] == want {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("marshal state: invalid value %d", uint8(s))
	}
	return []byte(names[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
