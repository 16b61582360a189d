// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) add(d time.Duration) { c.t = c.t.Add(d) }

func TestTimerAdvanceMovesMark(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	tm := NewWithClock(clk.now)
	tm.Start()

	clk.add(15 * time.Millisecond)
	assert.Equal(t, 15*time.Millisecond, tm.Elapsed())
	assert.Equal(t, 15*time.Millisecond, tm.Advance())

	clk.add(5 * time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, tm.Advance())
	assert.Equal(t, time.Duration(0), tm.Elapsed())
}

func TestTimerElapsedDoesNotReset(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	tm := NewWithClock(clk.now)
	tm.Start()

	clk.add(time.Second)
	assert.Equal(t, time.Second, tm.Elapsed())
	clk.add(time.Second)
	assert.Equal(t, 2*time.Second, tm.Elapsed())
}

func TestNewUsesWallClock(t *testing.T) {
	tm := New()
	tm.Start()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, tm.Elapsed(), 2*time.Millisecond)
}
