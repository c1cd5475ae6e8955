// Package testutil provides deterministic helpers for tests.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time of a StepClock.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// StepClock is a thread-safe clock that advances by a fixed step on every
// call to Now. It satisfies engine.Clock.
//
// Unlike a wall clock, StepClock can be reset so the same scenario produces
// identical timestamps on every run.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewStepClock creates a clock whose first Now returns start and every later
// call returns the previous value plus step. A zero step yields a frozen
// clock.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{start: start.UTC(), step: step}
}

// NewFixedClock returns a clock that always reports t.
func NewFixedClock(t time.Time) *StepClock {
	return NewStepClock(t, 0)
}

// Now returns the next timestamp.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many times Now has been called since construction or
// the last Set.
func (c *StepClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Set moves the clock so the next Now returns t. Moving backwards is
// allowed; tests use it to simulate clock skew.
func (c *StepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = t.UTC()
	c.calls = 0
}
