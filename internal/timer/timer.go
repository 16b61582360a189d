// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package timer provides the monotonic elapsed-time source used to bound
// event draining passes and to measure frame deltas.
package timer

import "time"

// Timer measures elapsed time between marks. It is not safe for concurrent
// use; each consumer owns its own Timer.
type Timer struct {
	now  func() time.Time
	mark time.Time
}

// New returns a Timer backed by the monotonic wall clock.
func New() *Timer {
	return NewWithClock(time.Now)
}

// NewWithClock returns a Timer reading time from now.
func NewWithClock(now func() time.Time) *Timer {
	if now == nil {
		now = time.Now
	}
	return &Timer{now: now}
}

// Start sets the mark to the current instant.
func (t *Timer) Start() {
	t.mark = t.now()
}

// Elapsed reports the time since the last Start or Advance without moving the mark.
func (t *Timer) Elapsed() time.Duration {
	return t.now().Sub(t.mark)
}

// Advance reports the time since the last mark and moves the mark to now.
func (t *Timer) Advance() time.Duration {
	now := t.now()
	d := now.Sub(t.mark)
	t.mark = now
	return d
}
