// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loader

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobsWaveResets(t *testing.T) {
	var j Jobs
	assert.Equal(t, 1.0, j.Snapshot().Progress())

	j.Queue()
	j.Queue()
	assert.Equal(t, JobCounts{Queued: 2}, j.Snapshot())
	assert.False(t, j.Snapshot().Done())

	assert.False(t, j.Complete(true))
	c := j.Snapshot()
	assert.Equal(t, JobCounts{Queued: 2, Completed: 1, Failed: 1}, c)
	assert.Equal(t, 0.5, c.Progress())

	assert.True(t, j.Complete(false))
	assert.Equal(t, JobCounts{}, j.Snapshot())
	assert.True(t, j.Snapshot().Done())
	assert.Equal(t, uint64(1), j.Waves())
}

func TestJobsCompleteNeverExceedsQueued(t *testing.T) {
	var j Jobs
	assert.False(t, j.Complete(false))
	assert.Equal(t, JobCounts{}, j.Snapshot())
	assert.Zero(t, j.Waves())
}

func TestJobCountsAdd(t *testing.T) {
	a := JobCounts{Queued: 3, Completed: 1, Failed: 1}
	b := JobCounts{Queued: 2, Completed: 2}
	assert.Equal(t, JobCounts{Queued: 5, Completed: 3, Failed: 1}, a.Add(b))
}

// Requests keep arriving while the consumer completes jobs, so waves close
// and reset concurrently with new Queue calls.
func TestJobsQueueRacesWaveReset(t *testing.T) {
	var j Jobs
	const producers, perProducer = 4, 500

	tokens := make(chan struct{}, producers*perProducer)
	var violations atomic.Int32
	stop := make(chan struct{})

	var checker sync.WaitGroup
	checker.Add(1)
	go func() {
		defer checker.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			c := j.Snapshot()
			if c.Completed > c.Queued || c.Failed > c.Completed {
				violations.Add(1)
			}
		}
	}()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				j.Queue()
				tokens <- struct{}{}
			}
		}()
	}

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for i := 0; i < producers*perProducer; i++ {
			<-tokens
			j.Complete(i%7 == 0)
		}
	}()

	wg.Wait()
	<-consumed
	close(stop)
	checker.Wait()

	require.Zero(t, violations.Load())
	assert.Equal(t, JobCounts{}, j.Snapshot())
	assert.GreaterOrEqual(t, j.Waves(), uint64(1))
}
